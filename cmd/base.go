// Package cmd is the base package for the arenatree executables.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	bc "github.com/spacemeshos/go-arenatree/config"
	"github.com/spacemeshos/go-arenatree/config/presets"
	"github.com/spacemeshos/go-arenatree/log"
)

var (
	// Version is the app's semantic version. Designed to be overwritten by make.
	Version string

	// Branch is the git branch used to build the App. Designed to be overwritten by make.
	Branch string

	// Commit is the git commit used to build the app. Designed to be overwritten by make.
	Commit string
)

var (
	mu                      sync.RWMutex
	globalCtx, globalCancel = context.WithCancel(context.Background())
)

// Ctx returns global context.
func Ctx() context.Context {
	mu.RLock()
	defer mu.RUnlock()

	return globalCtx
}

// Cancel returns global cancellation function.
func Cancel() func() {
	mu.RLock()
	defer mu.RUnlock()

	return globalCancel
}

// BaseApp is the base application command, provides basic init and flags for all executables and applications.
type BaseApp struct {
	Config *bc.Config
	Logger *zap.Logger
}

// NewBaseApp returns new basic application.
func NewBaseApp() *BaseApp {
	dc := bc.DefaultConfig()
	return &BaseApp{Config: &dc, Logger: log.NewNop()}
}

// Initialize loads config, sets up the logger and listens to Ctrl ^C.
func (app *BaseApp) Initialize(cmd *cobra.Command) error {
	conf, err := LoadConfigFromFile(viper.GetViper())
	if err != nil {
		return log.ErrMalformedConfig(err)
	}
	if err := EnsureCLIFlags(cmd, conf); err != nil {
		return log.ErrBadFlags(err)
	}
	if err := conf.Validate(); err != nil {
		return log.ErrMalformedConfig(err)
	}
	app.Config = conf

	logger, err := log.New("app", conf.LOGGING.AppLoggerLevel, conf.LOGGING.Encoder)
	if err != nil {
		return log.ErrMalformedConfig(err)
	}
	app.Logger = logger

	// exit gracefully on interrupt
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for range signalChan {
			logger.Info("received an interrupt, stopping")
			Cancel()()
		}
	}()
	return nil
}

// NewLogger returns a logger for module with the level configured for it.
func (app *BaseApp) NewLogger(module, level string) *zap.Logger {
	logger, err := log.New(module, level, app.Config.LOGGING.Encoder)
	if err != nil {
		app.Logger.Warn("bad log level, using the app logger",
			zap.String("module", module),
			zap.String("level", level),
			zap.Error(err))
		return app.Logger.Named(module)
	}
	return logger
}

// LoadConfigFromFile tries to load configuration file if the config parameter was specified.
func LoadConfigFromFile(vip *viper.Viper) (*bc.Config, error) {
	fileLocation := vip.GetString("config")
	if err := bc.LoadConfig(fileLocation, vip); err != nil {
		return nil, err
	}

	conf := bc.DefaultConfig()
	if name := vip.GetString("preset"); len(name) > 0 {
		preset, err := presets.Get(name)
		if err != nil {
			return nil, err
		}
		conf = preset
	}
	if err := bc.Unmarshal(vip, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

// EnsureCLIFlags copies the flags that were set explicitly into the config
// sections whose mapstructure tag matches the flag name.
func EnsureCLIFlags(cmd *cobra.Command, appCFG *bc.Config) error {
	var errs []error
	assignFields := func(p reflect.Type, elem reflect.Value, name string) bool {
		for i := 0; i < p.NumField(); i++ {
			if p.Field(i).Tag.Get("mapstructure") != name {
				continue
			}
			var val any
			switch p.Field(i).Type.String() {
			case "bool":
				val = viper.GetBool(name)
			case "string":
				val = viper.GetString(name)
			case "int":
				val = viper.GetInt(name)
			case "uint64":
				val = viper.GetUint64(name)
			case "time.Duration":
				val = viper.GetDuration(name)
			case "map[string]string":
				val = viper.GetStringMapString(name)
			default:
				errs = append(errs, fmt.Errorf("flag %s has unsupported type %s", name, p.Field(i).Type))
				return true
			}
			elem.Field(i).Set(reflect.ValueOf(val))
			return true
		}
		return false
	}

	sections := []reflect.Value{
		reflect.ValueOf(&appCFG.Tree).Elem(),
		reflect.ValueOf(&appCFG.Churn).Elem(),
		reflect.ValueOf(&appCFG.Metrics).Elem(),
		reflect.ValueOf(&appCFG.LOGGING).Elem(),
		reflect.ValueOf(appCFG).Elem(),
	}
	// viper can't handle nested structs when deserializing flags
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		for _, elem := range sections {
			if assignFields(elem.Type(), elem, f.Name) {
				return
			}
		}
	})
	return errors.Join(errs...)
}
