package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tracklab/progress/backend/internal/admin"
	"github.com/tracklab/progress/backend/internal/auth"
	"github.com/tracklab/progress/backend/internal/config"
	"github.com/tracklab/progress/backend/internal/database"
	"github.com/tracklab/progress/backend/internal/logging"
	"github.com/tracklab/progress/backend/internal/logs"
	"github.com/tracklab/progress/backend/internal/server"
	"github.com/tracklab/progress/backend/internal/storage"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tracker-api",
		Short: "Student progress tracker backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("auth-audience", defaults.GetString("auth.audience"), "Identity token audience (project id)")
	cmd.PersistentFlags().String("auth-jwks-url", defaults.GetString("auth.jwks_url"), "JWKS URL for identity token keys")
	cmd.PersistentFlags().String("store-endpoint", defaults.GetString("store.endpoint"), "Object store endpoint")
	cmd.PersistentFlags().String("store-logs-bucket", defaults.GetString("store.logs_bucket"), "Bucket holding JSON log records")
	cmd.PersistentFlags().String("store-attachments-bucket", defaults.GetString("store.attachments_bucket"), "Bucket holding attachments")
	cmd.PersistentFlags().String("mongo-uri", defaults.GetString("mongo.uri"), "MongoDB connection URI")
	cmd.PersistentFlags().String("mongo-database", defaults.GetString("mongo.database"), "MongoDB database name")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "auth.audience", "auth-audience")
	bindFlag(cmd, "auth.jwks_url", "auth-jwks-url")
	bindFlag(cmd, "store.endpoint", "store-endpoint")
	bindFlag(cmd, "store.logs_bucket", "store-logs-bucket")
	bindFlag(cmd, "store.attachments_bucket", "store-attachments-bucket")
	bindFlag(cmd, "mongo.uri", "mongo-uri")
	bindFlag(cmd, "mongo.database", "mongo-database")
	bindFlag(cmd, "log.level", "log-level")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogEncoding)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	verifier, err := auth.NewTokenVerifier(auth.VerifierConfig{
		Audience:       appConfig.TokenAudience,
		JWKSURL:        appConfig.JWKSURL,
		AllowedIssuers: allowedIssuers(appConfig),
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	store, err := storage.NewClient(storage.ClientConfig{
		Endpoint:  appConfig.ObjectStoreEndpoint,
		AccessKey: appConfig.ObjectStoreAccessKey,
		SecretKey: appConfig.ObjectStoreSecretKey,
		Region:    appConfig.ObjectStoreRegion,
		UseSSL:    appConfig.ObjectStoreUseSSL,
	})
	if err != nil {
		return err
	}

	logService, err := logs.NewService(logs.ServiceConfig{
		Store:             store,
		LogsBucket:        appConfig.LogsBucket,
		AttachmentsBucket: appConfig.AttachmentsBucket,
		PresignTTL:        appConfig.PresignTTL,
		Clock:             time.Now,
		Logger:            logger,
	})
	if err != nil {
		return err
	}

	mongoClient, mongoDatabase, err := database.OpenMongo(ctx, appConfig.MongoURI, appConfig.MongoDatabase, logger)
	if err != nil {
		return err
	}
	defer mongoClient.Disconnect(context.Background()) //nolint:errcheck

	adminService, err := admin.NewService(admin.ServiceConfig{
		Users:      admin.NewMongoUserStore(mongoDatabase),
		Activities: admin.NewMongoActivityStore(mongoDatabase),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Verifier:       verifier,
		Roles:          auth.NewRoleResolver(appConfig.AdminRoles),
		Logs:           logService,
		Admin:          adminService,
		Logger:         logger,
		AllowedOrigins: appConfig.AllowedOrigins,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func allowedIssuers(cfg config.AppConfig) []string {
	issuers := make([]string, 0, len(cfg.AllowedIssuers))
	for _, issuer := range cfg.AllowedIssuers {
		issuers = append(issuers, issuer)
		// Firebase securetoken issuers are project-scoped.
		if issuer == "https://securetoken.google.com" && cfg.TokenAudience != "" {
			issuers = append(issuers, issuer+"/"+cfg.TokenAudience)
		}
	}
	return issuers
}
