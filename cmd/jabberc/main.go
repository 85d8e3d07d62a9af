// Copyright 2021 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// The jabberc command connects to an XMPP server and logs the stanzas it
// receives.
// If echo is enabled in the configuration file it replies to chat messages
// with the same contents.
//
// For more information try running:
//
//     jabberc -help
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

/* #nosec */
const envPass = "XMPP_PASS"

func main() {
	var (
		configPath = "jabberc.yml"
		verbose    bool
	)
	flags := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), "Usage of %s:\n", flags.Name())
		fmt.Fprintf(flags.Output(), "\n  $%s: The password, if not set in the config file\n\n", envPass)
		flags.PrintDefaults()
	}
	flags.StringVar(&configPath, "config", configPath, "the YAML configuration file")
	flags.BoolVar(&verbose, "v", verbose, "turns on debug logging")

	switch err := flags.Parse(os.Args[1:]); err {
	case flag.ErrHelp:
		return
	case nil:
	default:
		logrus.Fatal(err)
	}

	cfg, err := loadConfigFile(configPath)
	if err != nil {
		logrus.Fatal(err)
	}
	if cfg.Password == "" {
		cfg.Password = os.Getenv(envPass)
	}
	logger := cfg.logger()
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal(err)
	}
	logger.Info("jabberc: exit")
}
