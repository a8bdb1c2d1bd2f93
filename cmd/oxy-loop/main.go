// Command oxy-loop opens a window and runs one of the frame loop variants until the window is
// closed or the process is interrupted.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Carmen-Shannon/oxy-loop/engine"
	"github.com/Carmen-Shannon/oxy-loop/engine/config"
	"github.com/Carmen-Shannon/oxy-loop/engine/variant"
	log "github.com/sirupsen/logrus"
)

func main() {
	envFile := flag.String("env", "", "optional .env file read before the environment")
	name := flag.String("variant", "", fmt.Sprintf("variant to run, one of: %s", strings.Join(variant.Names(), ", ")))
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal(err)
	}
	if *name != "" {
		cfg.Variant = *name
	}

	eng := engine.NewEngine(engine.WithConfig(cfg))
	if err := eng.Init(); err != nil {
		eng.Release()
		log.Fatal(err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("interrupt received, stopping")
		eng.Quit()
	}()

	runErr := eng.Run()
	eng.Release()
	if runErr != nil {
		log.Fatal(runErr)
	}
}
