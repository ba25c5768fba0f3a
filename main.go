package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/go-kit/log/level"
	cfg "github.com/mailio/go-web3-kit/config"
	w3srv "github.com/mailio/go-web3-kit/gingonic"
	"github.com/zkkeyless/go-keyless-prover/apiroutes"
	"github.com/zkkeyless/go-keyless-prover/global"
	"github.com/zkkeyless/go-keyless-prover/types"
	"golang.org/x/sys/unix"
)

func main() {
	var (
		configFile string
	)
	// configuration file optional path. Default:  current dir with  filename conf.yaml
	flag.StringVar(&configFile, "c", "conf.yaml", "Configuration file path.")
	flag.StringVar(&configFile, "config", "conf.yaml", "Configuration file path.")
	flag.Usage = usage
	flag.Parse()

	// loading configuration file
	err := cfg.NewYamlConfig(configFile, &global.Conf)
	if err != nil {
		global.Logger.Log(err, "conf.yaml failed to load")
		panic("Failed to load conf.yaml")
	}
	if err := ApplyEnvOverrides(&global.Conf); err != nil {
		panic(err)
	}

	env := types.NewEnvironment()

	if err := DownloadResources(&global.Conf, env); err != nil {
		level.Error(global.Logger).Log("msg", "failed to download circuit resources", "err", err)
		panic(err)
	}

	proverApi, jwkCache, err := ConfigProver(&global.Conf)
	if err != nil {
		level.Error(global.Logger).Log("msg", "failed to configure prover", "err", err)
		panic(err)
	}

	// keys are fetched before the first request; issuers that fail here are retried by the scheduled refresh
	refreshCtx, cancelRefresh := context.WithCancel(context.Background())
	if err := jwkCache.Populate(refreshCtx); err != nil {
		level.Error(global.Logger).Log("msg", "starting without any cached jwk set", "err", err)
	}
	jwkCache.ScheduleRefresh(refreshCtx, env.Cron, jwkRefreshInterval(&global.Conf))
	env.Cron.Start()
	defer func() {
		cancelRefresh()
		<-env.Cron.Stop().Done()
	}()

	// server wait to shutdown monitoring channels
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)

	signal.Notify(quit, os.Interrupt, unix.SIGTERM)

	// init routing (for RESTful API endpoints)
	router := w3srv.NewAPIRouter(&global.Conf.YamlConfig)

	// configure routes
	router = apiroutes.ConfigRoutes(router, proverApi)

	// start server
	srv := w3srv.Start(&global.Conf.YamlConfig, router)
	// wait for server shutdown
	go w3srv.Shutdown(srv, quit, done)

	global.Logger.Log("Server is ready to handle requests at", global.Conf.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("%v\n", err))
	}

	<-done
}

// usage will print out the flag options for the server.
func usage() {
	usageStr := `Usage: prover [options]
	Server Options:
	-c, --config <file>              Configuration file path
`
	fmt.Printf("%s\n", usageStr)
	os.Exit(0)
}
