package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	intconfig "kocrou/internal/config"
	"kocrou/internal/db"
	"kocrou/internal/events"
	router "kocrou/internal/http"
	"kocrou/internal/http/handlers"
	"kocrou/internal/presence"
	"kocrou/internal/repositories"
)

func main() {
	envFile := pflag.String("env-file", "", "fichier .env à charger avant l'environnement")
	addr := pflag.String("addr", "", "adresse d'écoute (remplace APP_ADDR)")
	migrateOnly := pflag.Bool("migrate-only", false, "appliquer les migrations puis quitter")
	pflag.Parse()

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	env := intconfig.LoadEnv(files...)
	if *addr != "" {
		env.AppAddr = *addr
	}
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	sqlDB := intconfig.ConnectDB(env)
	defer intconfig.CloseDB()

	if env.AutoMigrate || *migrateOnly {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := db.Migrate(ctx, sqlDB)
		cancel()
		if err != nil {
			log.Fatalf("migrations échouées: %v", err)
		}
		log.Println("migrations appliquées")
	}
	if *migrateOnly {
		return
	}

	hub := events.NewHub(0)
	sinks := events.Fanout{hub}
	if len(env.KafkaBrokers) > 0 {
		kafka, err := events.NewKafkaSink(env.KafkaBrokers, env.KafkaTopic)
		if err != nil {
			log.Printf("kafka indisponible, événements locaux uniquement: %v", err)
		} else {
			defer kafka.Close()
			sinks = append(sinks, kafka)
			log.Printf("événements publiés sur kafka topic=%s", env.KafkaTopic)
		}
	}

	var registry presence.Registry = presence.NewMemoryRegistry(presence.DefaultTTL)
	if env.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		client, err := presence.Connect(ctx, env.RedisAddr, env.RedisPassword)
		cancel()
		if err != nil {
			log.Printf("redis indisponible, présence en mémoire: %v", err)
		} else {
			defer client.Close()
			registry = presence.NewRedisRegistry(client, presence.DefaultTTL)
		}
	}

	app := &handlers.App{
		Trips:            repositories.TripRepository{DB: sqlDB},
		Reservations:     repositories.ReservationRepository{DB: sqlDB},
		Users:            repositories.UserRepository{DB: sqlDB},
		Logs:             repositories.ActivityRepository{DB: sqlDB},
		Settings:         repositories.SettingsRepository{DB: sqlDB},
		Events:           sinks,
		Hub:              hub,
		Presence:         registry,
		DB:               sqlDB,
		JWTSecret:        []byte(env.JWTSecret),
		JWTRefreshSecret: []byte(env.JWTRefreshSecret),
	}
	r := router.NewRouter(env, app)

	// No WriteTimeout: the monitoring stream stays open.
	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("serveur démarré sur http://localhost%s", env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("démarrage du serveur impossible: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("arrêt du serveur...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("arrêt du serveur échoué: %v", err)
	}

	log.Println("serveur arrêté proprement.")
}
