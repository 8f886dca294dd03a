package main

import (
	"net/http"
	"os"
	"os/signal"

	"github.com/bassj/spinner-app/config"
	"github.com/bassj/spinner-app/globals"
	"github.com/bassj/spinner-app/room"
	"github.com/bassj/spinner-app/web"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/pflag"
)

var (
	configPath = pflag.StringP("config", "c", "", "path to config file or directory")
	sslCert    = pflag.String("ssl-cert", "", "SSL cert (optional)")
	sslKey     = pflag.String("ssl-key", "", "SSL key (optional)")
)

func main() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		globals.AppLogger.Info("interrupted, shutting down")
		os.Exit(0)
	}()

	flagSet := config.GetFlagSet()
	pflag.CommandLine.AddFlagSet(flagSet)
	pflag.Parse()

	cfg, err := config.ReadConfiguration(*configPath, flagSet)
	if err != nil {
		panic(err)
	}
	if cfg.LogLevel != "" {
		globals.AppLogger.SetLevel(hclog.LevelFromString(cfg.LogLevel))
	}

	registry := room.NewRegistry(cfg.BcryptCost, cfg.ImageCacheSize)
	server := web.NewServer(cfg, registry)

	if cfg.RoomTTL > 0 {
		globals.AppLogger.Info("room expiry sweep enabled", "ttl", cfg.RoomTTL)
		registry.StartJanitor(cfg.RoomTTL, server.OnRoomExpired)
		defer registry.StopJanitor()
	}

	globals.AppLogger.Info("listening", "addr", cfg.Addr)
	if *sslCert != "" && *sslKey != "" {
		err = http.ListenAndServeTLS(cfg.Addr, *sslCert, *sslKey, server.Router())
	} else {
		err = http.ListenAndServe(cfg.Addr, server.Router())
	}
	globals.AppLogger.Error("stopped listening", "error", err)
}
