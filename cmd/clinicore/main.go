package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/clinicore/clinicore/config"
	"github.com/clinicore/clinicore/internal/adminapi"
	"github.com/clinicore/clinicore/internal/app"
	"github.com/clinicore/clinicore/internal/mailer"
	"github.com/clinicore/clinicore/internal/webserver"
)

var (
	conffile = flag.String("c", "/etc/clinicore.yml", "config file")
	initdb   = flag.Bool("initdb", false, "drop and recreate database tables")
	showver  = flag.Bool("v", false, "print version and exit")
)

var version = "dev"

func main() {
	flag.Parse()

	if *showver {
		fmt.Println("clinicore", version)
		return
	}

	cfg := config.LoadConfig(*conffile)
	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initdb {
		application.InitDb()
		zap.L().Info("database initialized")
		return
	}

	webserver.Init(application)
	adminapi.InitRouter()

	if err := mailer.Attach(application); err != nil {
		zap.L().Warn("failed to attach mail notifier", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return webserver.Get().Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		webserver.Get().Shutdown()
		return nil
	})

	if err := g.Wait(); err != nil {
		zap.L().Error("server exited", zap.Error(err))
	}
}
