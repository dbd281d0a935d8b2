package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	echoapi "github.com/hostelhq/hostel/apps/api/echo"
	"github.com/hostelhq/hostel/core"
	"github.com/hostelhq/hostel/core/announcement"
	"github.com/hostelhq/hostel/core/dashboard"
	"github.com/hostelhq/hostel/core/inventory"
	"github.com/hostelhq/hostel/core/leave"
	"github.com/hostelhq/hostel/core/maintenance"
	"github.com/hostelhq/hostel/core/store"
	"github.com/hostelhq/hostel/core/user"
	emailsvc "github.com/hostelhq/hostel/services/email"
	logsvc "github.com/hostelhq/hostel/services/logger"
	"github.com/hostelhq/hostel/storage"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()
	ctx := context.Background()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(conf.RollbarToken != "" && !conf.Debug)

	storeLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "STORE : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	storeLogger.Enable(conf.RollbarToken != "" && !conf.Debug)

	// set up storage
	backend, err := storage.Open(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening %s storage: %v", conf.Storage.Driver, err), err)
	}
	defer func() {
		if err = backend.Close(); err != nil {
			storeLogger.Error("failed to close storage", err)
		}
	}()

	// rehydrate stores
	withLogger := store.WithLogger(storeLogger)
	usrStore, err := user.NewStore(ctx, backend, withLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading users: %v", err), err)
	}
	annStore, err := announcement.NewStore(ctx, backend, withLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading announcements: %v", err), err)
	}
	invStore, err := inventory.NewStore(ctx, backend, withLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading inventory: %v", err), err)
	}
	leaveStore, err := leave.NewStore(ctx, backend, withLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading leave requests: %v", err), err)
	}
	mntStore, err := maintenance.NewStore(ctx, backend, withLogger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading maintenance requests: %v", err), err)
	}

	// export record counts, and reload every store on SIGHUP, e.g. after `admin seed` wrote to the same slots
	watchStores(ctx, logger, usrStore, annStore, invStore, leaveStore, mntStore)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(usrStore, mailSvc, conf)
	annSvc := announcement.NewService(annStore)
	invSvc := inventory.NewService(invStore)
	leaveSvc := leave.NewService(leaveStore, usrSvc, mailSvc, logger)
	mntSvc := maintenance.NewService(mntStore)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("storage").Set(conf.Storage.Driver)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:            conf,
			Logger:          logger,
			Validate:        validate,
			Translator:      translator,
			UserSvc:         usrSvc,
			AnnouncementSvc: annSvc,
			InventorySvc:    invSvc,
			LeaveSvc:        leaveSvc,
			MaintenanceSvc:  mntSvc,
			DashboardSvc:    dashboard.NewService(usrSvc, annSvc, invSvc, leaveSvc, mntSvc),
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

type watchedStore interface {
	Name() string
	Reload(ctx context.Context) error
	TrackRecords() (stop func())
}

func watchStores(ctx context.Context, logger core.Logger, stores ...watchedStore) {
	for _, st := range stores {
		st.TrackRecords()
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			for _, st := range stores {
				if err := st.Reload(ctx); err != nil {
					logger.Error(fmt.Sprintf("reloading %s: %v", st.Name(), err), err)
				}
			}
			logger.Info("stores reloaded")
		}
	}()
}
