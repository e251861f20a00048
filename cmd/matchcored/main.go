// Command matchcored runs a standalone matching-engine process, exposing
// the core's Exchange facade over the netsrv binary TCP protocol. This is
// a demonstration driver; the core contract is the exchange package, not
// this wire format.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"matchcore/internal/exchange"
	"matchcore/internal/netsrv"
)

func main() {
	addr := flag.String("addr", ":7700", "TCP listen address")
	queueCap := flag.Int("queue-capacity", 0, "event bus bounded queue capacity (0 selects the default)")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []exchange.Option
	if *queueCap > 0 {
		opts = append(opts, exchange.WithQueueCapacity(*queueCap))
	}
	ex := exchange.New(opts...)
	defer func() {
		dropped := ex.Shutdown()
		log.Info().Int64("dropped", dropped).Msg("exchange shut down")
	}()

	srv := netsrv.NewServer(ex)

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", *addr).Msg("matchcored: failed to listen")
	}
	log.Info().Str("addr", *addr).Msg("matchcored: listening")

	go func() {
		<-ctx.Done()
		log.Info().Msg("matchcored: shutdown signal received")
		if err := srv.Shutdown(); err != nil {
			log.Error().Err(err).Msg("matchcored: error during listener shutdown")
		}
	}()

	if err := srv.Serve(ln); err != nil {
		log.Error().Err(err).Msg("matchcored: server exited with error")
	}
}
