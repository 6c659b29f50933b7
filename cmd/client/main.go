// Package main is the interactive cart client. It keeps a guest cart and
// wishlist in a local storage file and syncs them with the server once the
// user logs in.
package main

import (
	"cmp"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/atinyakov/packcart/internal/cart"
	"github.com/atinyakov/packcart/internal/catalog"
	"github.com/atinyakov/packcart/internal/client/remote"
	"github.com/atinyakov/packcart/internal/client/storage"
	"github.com/atinyakov/packcart/internal/drawer"
	"github.com/atinyakov/packcart/internal/logger"
	"github.com/atinyakov/packcart/internal/notify"
	"github.com/atinyakov/packcart/internal/session"
	"github.com/atinyakov/packcart/internal/wishlist"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	version   string
	buildDate string
)

// main parses command-line flags, restores the local state and starts the shell.
func main() {
	var (
		baseURL     string
		storagePath string
		token       string
		logLevel    string
		showVer     bool
	)

	flag.StringVar(&baseURL, "url", "http://localhost:8080", "server base URL")
	flag.StringVar(&storagePath, "storage", storage.DefaultFile, "path to the local storage file")
	flag.StringVar(&token, "token", "", "bearer token to start with (env PACKCART_TOKEN)")
	flag.StringVar(&logLevel, "log", "error", "log level")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("packcart client\nVersion: %s\nBuild Date: %s\n", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))
		return
	}
	if env := os.Getenv("PACKCART_TOKEN"); env != "" {
		token = env
	}

	zl := logger.New()
	if err := zl.Init(logLevel); err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zl.Log.Sync() }()
	zapLogger := zl.Log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ls := storage.NewLocalStorage(storagePath, zapLogger)
	if err := ls.Load(); err != nil {
		log.Fatal(err)
	}

	creds := session.NewCredentials(ls)
	if token != "" {
		if err := creds.Set(token); err != nil {
			log.Fatal(err)
		}
	}

	api := remote.New(nil, baseURL, creds, zapLogger)
	notifier := notify.Writer(os.Stdout)
	products := catalog.New(api, zapLogger)
	cartDrawer := drawer.New(nil, zapLogger)

	store := cart.NewStore(cart.Deps{
		Catalog:  products,
		Remote:   api.Cart(),
		Storage:  ls,
		Session:  creds,
		Drawer:   cartDrawer,
		Notifier: notifier,
		Log:      zapLogger,
	})
	store.Restore()

	wl := wishlist.NewManager(api.Wishlist(), ls, creds, notifier, zapLogger)
	wl.Restore()

	controller := session.NewController(store, wl, zapLogger)

	var g errgroup.Group
	g.Go(func() error { return products.Load(ctx) })
	g.Go(func() error { return controller.Start(ctx, creds.Authenticated()) })
	if err := g.Wait(); err != nil {
		zapLogger.Warn("startup sync incomplete", zap.Error(err))
		fmt.Println("Working offline: the server could not be reached")
	}

	sh := &shell{
		out:      os.Stdout,
		creds:    creds,
		accounts: api,
		catalog:  products,
		cart:     store,
		wishlist: wl,
		session:  controller,
		drawer:   cartDrawer,
	}
	sh.run(ctx, os.Stdin)
}
