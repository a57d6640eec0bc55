package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophrecords/internal/client/cli"
	"github.com/dmitrijs2005/gophrecords/internal/client/config"
	"github.com/dmitrijs2005/gophrecords/internal/client/repositories/secrets"
	"github.com/dmitrijs2005/gophrecords/internal/common"
	"github.com/dmitrijs2005/gophrecords/internal/logging"
	"github.com/dmitrijs2005/gophrecords/pkg/sdk"
)

const (
	envAccessToken  = "GOPHRECORDS_ACCESS_TOKEN"
	envRefreshToken = "GOPHRECORDS_REFRESH_TOKEN"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	if config.Command() == "passwd" {
		if err := changePassphrase(ctx, cfg); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("%v", err)
	}

}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		return err
	}

	access := os.Getenv(envAccessToken)
	if access == "" {
		return errors.New(envAccessToken + " is not set")
	}

	passphrase, err := cli.GetPassword("Device passphrase", os.Stdout)
	if err != nil {
		return err
	}

	c, err := sdk.New(ctx, cfg,
		sdk.WithTokens(access, os.Getenv(envRefreshToken)),
		sdk.WithPassphrase(passphrase),
		sdk.WithLogger(logger),
	)
	common.WipeByteArray(passphrase)
	if err != nil {
		return err
	}
	defer c.Close()

	app := cli.NewApp(cli.SDKRecords{Client: c}, c, c.UserID(), cfg.OnlineCheckInterval)
	app.Run(ctx)
	return nil
}

func changePassphrase(ctx context.Context, cfg *config.Config) error {
	_, db, err := secrets.Open(ctx, cfg.StorageDriver, cfg.StorageDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	oldPass, err := cli.GetPassword("Current passphrase", os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(oldPass)

	newPass, err := cli.GetNewPassword("New passphrase", os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(newPass)

	if err := secrets.Rekey(ctx, db, cfg.StorageDriver, oldPass, newPass); err != nil {
		return err
	}
	log.Println("passphrase changed")
	return nil
}
