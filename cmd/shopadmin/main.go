package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/shopadmin/internal/apiclient"
	"github.com/shopadmin/internal/config"
	"github.com/shopadmin/internal/credstore"
	"github.com/shopadmin/internal/resource"
	"github.com/shopadmin/internal/service"
	"github.com/shopadmin/internal/session"
	"github.com/shopadmin/internal/storage"

	_ "github.com/shopadmin/docs" // swagger docs
)

// @title Shop Admin Console API
// @version 1.0
// @description Local console over the shop backend: session, gated catalogue, order and settings management.

// @contact.name API Support

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token of the signed-in account

const (
	Version = "0.1.0"
	appName = "shopadmin"
)

func main() {
	if err := execute(&cli{}, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// execute runs one command and closes the application afterwards,
// whether the command failed or not. cobra skips post-run hooks on
// error, and os.Exit skips defers, so the close lives here.
func execute(c *cli, args []string) error {
	defer c.close()
	cmd := rootCmd(c)
	cmd.SetArgs(args)
	return cmd.Execute()
}

// cli carries flags and the lazily built application between commands.
type cli struct {
	configPath string
	logLevel   string
	app        *app
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
	}
}

func rootCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Admin client for the shop backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" || cmd.Name() == "help" {
				return nil
			}
			a, err := newApp(c.configPath, c.logLevel)
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		loginCmd(c),
		registerCmd(c),
		logoutCmd(c),
		whoamiCmd(c),
		callbackCmd(c),
		statsCmd(c),
		productsCmd(c),
		ordersCmd(c),
		categoriesCmd(c),
		settingsCmd(c),
		usersCmd(c),
		migrateCmd(c),
		serveCmd(c),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}

// app is the wired client core shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	db       *storage.Database
	store    credstore.Store
	client   *apiclient.Client
	registry *prometheus.Registry
	closed   bool

	session    *session.Controller
	ordersAPI  *service.Orders
	dashboard  *service.Dashboard
	products   *resource.Products
	orders     *resource.Orders
	categories *resource.Categories
	settings   *resource.Settings
	users      *resource.Users
}

func newApp(configPath, logLevel string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	if err := a.openStore(); err != nil {
		a.Close()
		return nil, err
	}

	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	apiclient.RegisterMetrics(a.registry)

	a.client, err = apiclient.New(apiclient.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		UserAgent: cfg.API.UserAgent,
		ProxyURL:  cfg.API.ProxyURL,
		RateLimit: cfg.API.RateLimit,
		Burst:     cfg.API.Burst,
	}, a.store, apiclient.WithLogger(logger.With("component", "apiclient")))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create api client: %w", err)
	}

	usersAPI := service.NewUsers(a.client)
	a.session = session.New(a.store, service.NewAuth(a.client),
		session.WithLogger(logger.With("component", "session")),
		session.WithProfileUpdater(usersAPI),
		session.WithNavigator(a.navigate),
	)
	a.client.OnUnauthorized(a.session.HandleUnauthorized)

	a.ordersAPI = service.NewOrders(a.client)
	a.dashboard = service.NewDashboard(a.client)
	a.products = resource.NewProducts(service.NewProducts(a.client), logger)
	a.orders = resource.NewOrders(a.ordersAPI, logger)
	a.categories = resource.NewCategories(service.NewCategories(a.client), logger)
	a.settings = resource.NewSettings(service.NewSettings(a.client), logger)
	a.users = resource.NewUsers(usersAPI, logger)
	return a, nil
}

func (a *app) openStore() error {
	sc := a.cfg.Store
	logger := a.logger.With("component", "credstore", "backend", sc.Backend)
	switch sc.Backend {
	case config.StoreMemory:
		a.store = credstore.NewMemory()
	case config.StorePostgres:
		db, err := storage.NewDatabase(&a.cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.db = db
		if err := db.RunMigrations(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		store, err := credstore.NewPostgres(db, sc.Profile, logger)
		if err != nil {
			return err
		}
		a.store = store
	default:
		opts := []credstore.FileOption{credstore.WithFileLogger(logger), credstore.WithDebounce(sc.Debounce)}
		if sc.Secret != "" {
			opts = append(opts, credstore.WithSecret(sc.Secret))
		}
		store, err := credstore.NewFile(sc.Path, opts...)
		if err != nil {
			return fmt.Errorf("failed to open credential file: %w", err)
		}
		a.store = store
	}
	return nil
}

// navigate is where the session sends the user. Outside a browser the
// only useful target is the login page.
func (a *app) navigate(target string) {
	if strings.HasPrefix(target, session.LoginPath) {
		fmt.Fprintf(os.Stderr, "Signed out. Run `%s login` to sign in again.\n", appName)
		return
	}
	a.logger.Debug("navigate", "target", target)
}

func (a *app) Close() {
	if a.closed {
		return
	}
	a.closed = true
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close database", "error", err)
		}
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
