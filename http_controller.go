package auth

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// LoginRequest is the primary subject/secret login payload.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (p LoginRequest) GetIdentifier() string { return p.Identifier }
func (p LoginRequest) GetPassword() string   { return p.Password }

// Validate checks the payload before it reaches the authenticator.
func (p LoginRequest) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Identifier, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required),
	)
}

// AccessKeyRequest is the supplier company login payload.
type AccessKeyRequest struct {
	KeyID     string `json:"key_id"`
	KeySecret string `json:"key_secret"`
}

func (p AccessKeyRequest) GetKeyID() string     { return p.KeyID }
func (p AccessKeyRequest) GetKeySecret() string { return p.KeySecret }

// Validate checks the payload before it reaches the authenticator.
func (p AccessKeyRequest) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.KeyID, validation.Required),
		validation.Field(&p.KeySecret, validation.Required),
	)
}

// CodeRequest asks for a one time login code.
type CodeRequest struct {
	PhoneNumber string `json:"phone_number"`
}

// Validate checks the payload. Full validation happens in the code service
// via the phone number library; this only rejects empty bodies early.
func (p CodeRequest) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.PhoneNumber, validation.Required),
	)
}

// CodeVerifyRequest is the customer code login payload.
type CodeVerifyRequest struct {
	PhoneNumber string `json:"phone_number"`
	Code        string `json:"code"`
}

func (p CodeVerifyRequest) GetPhoneNumber() string { return p.PhoneNumber }
func (p CodeVerifyRequest) GetCode() string        { return p.Code }

// Validate checks the payload before it reaches the authenticator.
func (p CodeVerifyRequest) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.PhoneNumber, validation.Required),
		validation.Field(&p.Code, validation.Required, is.Digit),
	)
}

// ControllerRoutes holds the paths the controller mounts.
type ControllerRoutes struct {
	Login       string
	AccessKey   string
	CodeRequest string
	CodeVerify  string
	Logout      string
}

// Controller exposes the authentication endpoints feature screens consume.
type Controller struct {
	Auther AuthClient
	Logger Logger
	Routes *ControllerRoutes
}

// ControllerOption customizes the controller.
type ControllerOption func(*Controller)

// WithControllerLogger overrides the logger.
func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// NewController returns a controller bound to the authenticator.
func NewController(auther AuthClient, opts ...ControllerOption) *Controller {
	c := &Controller{
		Auther: auther,
		Logger: defLogger{},
		Routes: &ControllerRoutes{
			Login:       "/auth/login",
			AccessKey:   "/auth/access-key",
			CodeRequest: "/auth/code/request",
			CodeVerify:  "/auth/code/verify",
			Logout:      "/auth/logout",
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// RegisterRoutes mounts the authentication endpoints on the app.
func (c *Controller) RegisterRoutes(app *fiber.App) {
	app.Post(c.Routes.Login, c.LoginPost)
	app.Post(c.Routes.AccessKey, c.AccessKeyPost)
	app.Post(c.Routes.CodeRequest, c.CodeRequestPost)
	app.Post(c.Routes.CodeVerify, c.CodeVerifyPost)
	app.Post(c.Routes.Logout, c.LogoutPost)
}

// LoginPost handles the primary subject/secret flow.
func (c *Controller) LoginPost(ctx *fiber.Ctx) error {
	var payload LoginRequest
	if err := ctx.BodyParser(&payload); err != nil {
		return c.badRequest(ctx, "unparseable payload")
	}
	if err := payload.Validate(); err != nil {
		return c.validationFailure(ctx, err)
	}

	result, err := c.Auther.Authenticate(ctx.Context(), payload)
	if err != nil {
		return c.authFailure(ctx, err)
	}

	return ctx.Status(http.StatusOK).JSON(credentialEnvelope{
		Credential: result.Credential,
		Identity:   result.Identity,
	})
}

// AccessKeyPost handles the supplier company flow.
func (c *Controller) AccessKeyPost(ctx *fiber.Ctx) error {
	var payload AccessKeyRequest
	if err := ctx.BodyParser(&payload); err != nil {
		return c.badRequest(ctx, "unparseable payload")
	}
	if err := payload.Validate(); err != nil {
		return c.validationFailure(ctx, err)
	}

	result, err := c.Auther.AuthenticateAccessKey(ctx.Context(), payload)
	if err != nil {
		return c.authFailure(ctx, err)
	}

	return ctx.Status(http.StatusOK).JSON(credentialEnvelope{
		Credential: result.Credential,
		Identity:   result.Identity,
	})
}

// CodeRequestPost issues a one time login code. The answer is the same for
// known and unknown numbers.
func (c *Controller) CodeRequestPost(ctx *fiber.Ctx) error {
	var payload CodeRequest
	if err := ctx.BodyParser(&payload); err != nil {
		return c.badRequest(ctx, "unparseable payload")
	}
	if err := payload.Validate(); err != nil {
		return c.validationFailure(ctx, err)
	}

	if err := c.Auther.RequestLoginCode(ctx.Context(), payload.PhoneNumber); err != nil {
		return c.authFailure(ctx, err)
	}

	return ctx.SendStatus(http.StatusAccepted)
}

// CodeVerifyPost handles the customer code flow.
func (c *Controller) CodeVerifyPost(ctx *fiber.Ctx) error {
	var payload CodeVerifyRequest
	if err := ctx.BodyParser(&payload); err != nil {
		return c.badRequest(ctx, "unparseable payload")
	}
	if err := payload.Validate(); err != nil {
		return c.validationFailure(ctx, err)
	}

	result, err := c.Auther.AuthenticateCode(ctx.Context(), payload)
	if err != nil {
		return c.authFailure(ctx, err)
	}

	return ctx.Status(http.StatusOK).JSON(credentialEnvelope{
		Credential: result.Credential,
		Identity:   result.Identity,
	})
}

// LogoutPost acknowledges a logout. Credentials are bearer tokens: the
// session teardown happens client side, the endpoint exists so gateways and
// proxies observe the event.
func (c *Controller) LogoutPost(ctx *fiber.Ctx) error {
	return ctx.SendStatus(http.StatusNoContent)
}

func (c *Controller) badRequest(ctx *fiber.Ctx, message string) error {
	return ctx.Status(http.StatusBadRequest).JSON(errorEnvelope{Error: message})
}

func (c *Controller) validationFailure(ctx *fiber.Ctx, err error) error {
	return ctx.Status(http.StatusBadRequest).JSON(errorEnvelope{
		Error:    err.Error(),
		TextCode: "VALIDATION_FAILED",
	})
}

// authFailure folds every authenticator error into the wire contract:
// declined attempts answer 401 with a displayable message, infrastructure
// failures answer 502 without leaking internals.
func (c *Controller) authFailure(ctx *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.Category {
		case goerrors.CategoryAuth, goerrors.CategoryAuthz:
			return ctx.Status(http.StatusUnauthorized).JSON(errorEnvelope{
				Error:    richErr.Message,
				TextCode: richErr.TextCode,
			})
		case goerrors.CategoryBadInput, goerrors.CategoryValidation:
			return ctx.Status(http.StatusBadRequest).JSON(errorEnvelope{
				Error:    richErr.Message,
				TextCode: richErr.TextCode,
			})
		}
	}

	c.Logger.Error("authentication endpoint failure: %v", err)
	return ctx.Status(http.StatusBadGateway).JSON(errorEnvelope{
		Error: "authentication temporarily unavailable",
	})
}
