package main

import (
	"context"
	"flag"
	"github.com/jd3nn1s/skidsteer"
	"github.com/jd3nn1s/skidsteer/pwm"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

var configFile = flag.String("config", "skidsteer.toml", "configuration file, relative to the binary unless absolute")
var testMode = flag.Bool("testmode", false, "generate test commands instead of listening")
var dryRun = flag.Bool("dry-run", false, "log pwm writes instead of driving the board")

func configPath(fileName string) (string, error) {
	if filepath.IsAbs(fileName) {
		return fileName, nil
	}
	dir, err := filepath.Abs(filepath.Dir(os.Args[0]))
	if err != nil {
		return "", errors.Wrapf(err, "unable to determine binary location")
	}
	return filepath.Join(dir, fileName), nil
}

func openSink(cfg pwm.Config) (pwm.Sink, error) {
	if *dryRun {
		return pwm.NewLogSink(), nil
	}
	board, err := pwm.OpenPCA9685(cfg)
	if err != nil {
		return nil, err
	}
	return board, nil
}

func main() {
	log.SetLevel(log.InfoLevel)
	flag.Parse()

	path, err := configPath(*configFile)
	if err != nil {
		log.Fatal("unable to locate configuration: ", err)
	}
	cfg, err := skidsteer.LoadConfig(path)
	if err != nil {
		log.Fatal("unable to load configuration: ", err)
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal("invalid log level: ", err)
	}
	log.SetLevel(level)

	sink, err := openSink(cfg.PWM)
	if err != nil {
		log.Fatal("unable to open pwm board: ", err)
	}
	v, err := skidsteer.NewVehicle(cfg, sink)
	if err != nil {
		_ = sink.Close()
		log.Fatal("unable to create vehicle: ", err)
	}
	v.SetTestMode(*testMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := v.Start(ctx); err != nil {
		_ = v.Shutdown()
		log.Fatal("unable to start vehicle: ", err)
	}
	if err := v.Run(ctx); err != nil && err != context.Canceled {
		log.WithField("err", err).Error("command loop stopped")
	}
	if err := v.Shutdown(); err != nil {
		log.WithField("err", err).Error("unclean shutdown")
		os.Exit(1)
	}
}
