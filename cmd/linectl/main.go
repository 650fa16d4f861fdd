// linectl runs a controller plus a line of carriages and simulated
// actuators in one process, all on loopback. It exists for local demos and
// smoke testing; production carriages run ccpctl and espctl separately.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/danmuck/brctl/internal/actuator"
	"github.com/danmuck/brctl/internal/carriage"
	"github.com/danmuck/brctl/internal/controller"
	"github.com/danmuck/brctl/internal/logging"
	"github.com/danmuck/brctl/internal/protocol"
	"github.com/rs/zerolog/log"
)

// lineLayout places every endpoint of a local line.
type lineLayout struct {
	Host           string
	Carriages      int
	ControllerPort int
	// BasePort + 10*n + {1,2,3} are carriage n's controller, actuator-reply
	// and simulator ports.
	BasePort  int
	AdminPort int
	IDPrefix  string
}

type lineConfig struct {
	Controller controller.ServiceConfig
	Carriages  []carriage.ServiceConfig
	Actuators  []actuator.ServiceConfig
}

var errInvalidLayout = errors.New("linectl: invalid layout")

func lineConfigs(l lineLayout) (lineConfig, error) {
	if l.Carriages < 1 || l.Carriages > 99 {
		return lineConfig{}, fmt.Errorf("%w: carriages must be 1..99, got %d", errInvalidLayout, l.Carriages)
	}
	if l.ControllerPort <= 0 || l.BasePort <= 0 {
		return lineConfig{}, fmt.Errorf("%w: ports must be positive", errInvalidLayout)
	}
	if l.IDPrefix == "" {
		l.IDPrefix = protocol.DefaultIDPrefix
	}
	addr := func(port int) string { return fmt.Sprintf("%s:%d", l.Host, port) }

	out := lineConfig{Controller: controller.DefaultServiceConfig()}
	out.Controller.ListenAddr = addr(l.ControllerPort)
	if l.AdminPort > 0 {
		out.Controller.AdminListenAddr = addr(l.AdminPort)
	}

	for n := 1; n <= l.Carriages; n++ {
		id := fmt.Sprintf("%s%02d", l.IDPrefix, n)
		ccp := addr(l.BasePort + 10*n + 1)
		reply := addr(l.BasePort + 10*n + 2)
		esp := addr(l.BasePort + 10*n + 3)

		c := carriage.DefaultServiceConfig()
		c.CarriageID = id
		c.IDPrefix = l.IDPrefix
		c.ListenAddr = ccp
		c.ControllerAddr = out.Controller.ListenAddr
		c.ActuatorAddr = esp
		c.ActuatorListenAddr = reply
		if l.AdminPort > 0 {
			c.AdminListenAddr = addr(l.AdminPort + n)
		}
		out.Carriages = append(out.Carriages, c)

		a := actuator.DefaultServiceConfig()
		a.ActuatorID = fmt.Sprintf("ESP%02d", n)
		a.CarriageID = id
		a.ListenAddr = esp
		a.CarriageAddr = reply
		out.Actuators = append(out.Actuators, a)

		out.Controller.Fleet = append(out.Controller.Fleet, controller.Preset{ID: id, Addr: ccp})
	}
	return out, nil
}

type runner interface {
	RunContext(ctx context.Context) error
}

func runLine(ctx context.Context, cfg lineConfig) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runners := []runner{controller.NewServiceWithConfig(cfg.Controller)}
	for _, a := range cfg.Actuators {
		runners = append(runners, actuator.NewServiceWithConfig(a))
	}
	for _, c := range cfg.Carriages {
		runners = append(runners, carriage.NewServiceWithConfig(c))
	}

	errCh := make(chan error, len(runners))
	var wg sync.WaitGroup
	for _, r := range runners {
		wg.Add(1)
		go func(r runner) {
			defer wg.Done()
			if err := r.RunContext(ctx); err != nil {
				errCh <- err
				cancel()
			}
		}(r)
	}
	wg.Wait()
	close(errCh)
	return <-errCh
}

func main() {
	logging.ConfigureRuntime()

	layout := lineLayout{}
	flag.StringVar(&layout.Host, "host", "127.0.0.1", "bind host for every endpoint")
	flag.IntVar(&layout.Carriages, "carriages", 3, "number of carriages on the line")
	flag.IntVar(&layout.ControllerPort, "controller-port", 2000, "controller UDP port")
	flag.IntVar(&layout.BasePort, "base-port", 3000, "first port of the carriage blocks")
	flag.IntVar(&layout.AdminPort, "admin-port", 0, "controller admin port, carriages use the following ports (0 disables)")
	flag.StringVar(&layout.IDPrefix, "prefix", protocol.DefaultIDPrefix, "carriage id prefix")
	flag.Parse()

	cfg, err := lineConfigs(layout)
	if err != nil {
		log.Fatal().Err(err).Msg("linectl invalid layout")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Int("carriages", layout.Carriages).
		Str("controller", cfg.Controller.ListenAddr).
		Msg("linectl starting line")
	if err := runLine(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("linectl stopped")
		os.Exit(1)
	}
}
