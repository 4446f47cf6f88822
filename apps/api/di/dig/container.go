package dig_container

import (
	"log"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/earnyourwings/wings/apps/api/echo"
	"github.com/earnyourwings/wings/core"
	"github.com/earnyourwings/wings/core/session"
	"github.com/earnyourwings/wings/core/user"
	backendsvc "github.com/earnyourwings/wings/services/backend"
	logsvc "github.com/earnyourwings/wings/services/logger"
	inmemdb "github.com/earnyourwings/wings/storage/database/inmem"
)

type BackendLoggerParam struct {
	dig.In
	Logger core.Logger `name:"backendLogger"`
}

func newRollbarLogger(conf *core.Config, name string) (*logsvc.RollbarLogger, error) {
	local, err := logsvc.NewZapLogger(conf)
	if err != nil {
		return nil, err
	}
	logger := logsvc.NewRollbarLogger(local.Named(name), conf)
	logger.Enable(!conf.Debug)
	return logger, nil
}

func newLogger(conf *core.Config) (core.Logger, *logsvc.RollbarLogger, error) {
	logger, err := newRollbarLogger(conf, "api")
	return logger, logger, err
}

func newBackendLogger(conf *core.Config) (core.Logger, error) {
	return newRollbarLogger(conf, "backend")
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	return validate
}

func newSessionFactory(
	client *backendsvc.Client,
	loggerParam BackendLoggerParam,
	validate *validator.Validate,
) inmemdb.SessionFactory {
	return func(usr user.User) *session.Session {
		return session.New(usr, client, loggerParam.Logger, validate)
	}
}

func newSessionRepository(
	conf *core.Config,
	newSess inmemdb.SessionFactory,
	logger core.Logger,
) *inmemdb.SessionRepository {
	return inmemdb.NewSessionRepository(inmemdb.Open(), newSess, logger, conf.Server.SessionIdleTTL)
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newBackendLogger, dig.Name("backendLogger")))
	must(c.Provide(newTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(backendsvc.NewClient))
	must(c.Provide(newSessionFactory))
	must(c.Provide(newSessionRepository))
	must(c.Provide(func(repo *inmemdb.SessionRepository) session.Repository { return repo }))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
