package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/earnyourwings/wings/core"
	backendsvc "github.com/earnyourwings/wings/services/backend"
	logsvc "github.com/earnyourwings/wings/services/logger"
)

func main() {
	conf, err := core.NewConfig()
	errAndDie(err)

	// logs go to a file: the terminal belongs to the commands
	local, err := logsvc.NewZapLogger(conf, filepath.Join(conf.WorkDir, "admin.log"))
	errAndDie(err)
	logger := logsvc.NewRollbarLogger(local.Named("admin"), conf)
	logger.Enable(!conf.Debug)
	defer logger.Sync()

	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		conf:     conf,
		backend:  backendsvc.NewClient(conf),
		logger:   logger,
		validate: validate,
		out:      os.Stdout,
	}
	if err := cli.run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		logger.Sync()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
