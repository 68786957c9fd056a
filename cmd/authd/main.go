package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/shopgrid/auth"
	"github.com/shopgrid/auth/middleware/routeguard"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "authd:", err)
		os.Exit(1)
	}
}

func run() error {
	// Local development convenience; missing files are fine.
	_ = godotenv.Load()

	ctx := context.Background()

	cfg, err := auth.LoadEnvConfig(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := auth.NewZerologAdapter(auth.LoggerOptions{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	bunDB, err := openDatabase(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer bunDB.Close()

	if err := auth.InitAccountsTable(ctx, bunDB); err != nil {
		return fmt.Errorf("init accounts table: %w", err)
	}

	accounts := auth.NewAccountsRepository(bunDB)

	codes := buildOneTimeCodes(cfg, logger)

	tokenService := auth.NewTokenService([]byte(cfg.SigningKey), cfg.TokenExpiration, cfg.Issuer, cfg.Audience, logger)

	auther := auth.NewAuthenticator(accounts, tokenService, codes).
		WithLogger(logger).
		WithCodeDeliverer(func(ctx context.Context, phone, code string) error {
			// Wire an SMS provider here; development logs the code instead.
			logger.Info("login code for %s: %s", phone, code)
			return nil
		})

	app := fiber.New(fiber.Config{
		AppName:      "authd",
		ErrorHandler: errorHandler(logger),
	})

	controller := auth.NewController(auther, auth.WithControllerLogger(logger))
	controller.RegisterRoutes(app)

	registerDashboards(app, tokenService, cfg, logger)

	errc := make(chan error, 1)
	go func() {
		errc <- app.Listen(":" + cfg.Port)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case sig := <-stop:
		logger.Info("received %s, shutting down", sig)
	}

	return app.ShutdownWithTimeout(10 * time.Second)
}

func openDatabase(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// buildOneTimeCodes uses redis when configured so codes survive restarts and
// are shared across replicas; otherwise an in-memory store is enough.
func buildOneTimeCodes(cfg *auth.EnvConfig, logger auth.Logger) *auth.OneTimeCodes {
	var store auth.CodeStore
	if cfg.RedisAddr != "" {
		store = auth.NewRedisCodeStore(redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		}))
		logger.Info("one-time codes backed by redis at %s", cfg.RedisAddr)
	} else {
		store = auth.NewMemoryCodeStore()
		logger.Warn("one-time codes held in memory, codes will not survive restarts")
	}

	return auth.NewOneTimeCodes(store,
		auth.WithCodeRegion(cfg.CodeRegion),
		auth.WithCodeLogger(logger),
	)
}

// registerDashboards guards one landing route per role so the redirect
// policy is exercised end to end.
func registerDashboards(app *fiber.App, validator auth.TokenValidator, cfg *auth.EnvConfig, logger auth.Logger) {
	guard := func(roles ...auth.Role) fiber.Handler {
		return routeguard.New(routeguard.Config{
			Validator:        validator,
			RequiredRoles:    roles,
			ContextKey:       cfg.GetContextKey(),
			TokenLookup:      cfg.GetTokenLookup(),
			AuthScheme:       cfg.GetAuthScheme(),
			RejectedRouteKey: cfg.GetRejectedRouteKey(),
			Logger:           logger,
		})
	}

	render := func(title string) fiber.Handler {
		return func(c *fiber.Ctx) error {
			identity, _ := auth.IdentityFromContext(c.UserContext())
			return c.JSON(fiber.Map{
				"page":    title,
				"subject": identity.SubjectID,
				"role":    identity.Role,
			})
		}
	}

	app.Get("/owner/dashboard", guard(auth.RoleOwner), render("owner dashboard"))
	app.Get("/manager/dashboard", guard(auth.RoleOwner, auth.RoleManager), render("manager dashboard"))
	app.Get("/salesman/dashboard", guard(auth.RoleSalesman), render("salesman dashboard"))
	app.Get("/company/dashboard", guard(auth.RoleCompany), render("company dashboard"))
	app.Get("/shop", guard(auth.RoleCustomer), render("shop"))

	app.Get(auth.LoginRoute, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"page": "login"})
	})
}

func errorHandler(logger auth.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if fe, ok := err.(*fiber.Error); ok {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("unhandled error on %s %s: %v", c.Method(), c.Path(), err)
		}
		return c.Status(code).JSON(fiber.Map{"error": err.Error()})
	}
}
