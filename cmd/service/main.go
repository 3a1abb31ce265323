package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/auth"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/config"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/logger"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/service"
	"gitlab.com/dirk.krummacker/contact-keeper/internal/store"
)

// Usage example on the command line:
// > PORT=8080 DBUSER=dirk DBPWD=bullo92 JWT_SECRET=changeme GIN_MODE=release GIN_LOGGING=OFF go run main.go
func main() {
	conf, err := config.Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not parse configuration:", err)
		os.Exit(1)
	}

	log, err := logger.New(conf.Logger.Mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not create logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	contacts, err := openStore(ctx, conf)
	if err != nil {
		log.Fatal("could not open store", "store", conf.Store, "error", err)
	}
	defer contacts.Close()

	requestLogging := !strings.EqualFold(conf.HTTP.Logging, "off")
	if !requestLogging {
		log.Info("Turning off HTTP request logging.")
	}
	router := service.SetupHttpRouter(service.Options{
		Store:          contacts,
		Auth:           auth.NewMiddleware(log, auth.NewIssuer(conf.Auth.Secret, conf.Auth.TTL)),
		Log:            log,
		RequestLogging: requestLogging,
		CORSOrigins:    conf.HTTP.CORSOrigins,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", conf.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("could not shut down gracefully", "error", err)
		}
	}()

	log.Info("starting server", "address", server.Addr, "store", conf.Store)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server failed", "error", err)
	}
	log.Info("server stopped")
}

func openStore(ctx context.Context, conf *config.Config) (store.Store, error) {
	if conf.Store == config.StoreMongo {
		s, err := store.OpenMongo(ctx, conf.Mongo)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	sqlDB, err := store.OpenMySQL(conf.MySQL)
	if err != nil {
		return nil, err
	}
	s, err := store.NewMySQL(sqlDB)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return s, nil
}
