package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/bytes"
	"github.com/pkg/errors"

	"github.com/earnyourwings/wings/core"
	"github.com/earnyourwings/wings/core/session"
)

// room left for the other form fields of an upload
const formOverhead = 64 << 10

type appApi struct {
	conf     *core.Config
	sessions session.Repository
	validate *validator.Validate
}

func registerAppAPI(g *echo.Group, conf *core.Config, sessions session.Repository, validate *validator.Validate) {
	api := appApi{
		conf:     conf,
		sessions: sessions,
		validate: validate,
	}
	upload := middleware.BodyLimit(bytes.Format(conf.Server.MaxUploadSize + formOverhead))

	ag := g.Group("/app", sessionMiddleware(sessions))
	ag.GET("/state", api.state)
	ag.DELETE("/state", api.reset)
	ag.POST("/refresh", api.refresh)
	ag.GET("/dashboard", api.dashboard)
	ag.POST("/navigate", api.navigate)

	// modals
	mg := ag.Group("/modal")
	mg.POST("/tasks", api.openTaskList)
	mg.DELETE("/tasks", api.closeTaskList)
	mg.POST("/completion", api.openCompletion)
	mg.PUT("/completion", api.updateCompletion)
	mg.PUT("/completion/file", api.attachCompletionFile, upload)
	mg.DELETE("/completion/file", api.detachCompletionFile)
	mg.POST("/completion/submit", api.submitCompletion)
	mg.DELETE("/completion", api.cancelCompletion)

	// portfolio form
	pg := ag.Group("/portfolio/draft")
	pg.PUT("", api.editDraft)
	pg.POST("/competencies/:key", api.toggleDraftCompetency)
	pg.PUT("/tags", api.setDraftTags)
	pg.PUT("/file", api.attachDraftFile, upload)
	pg.DELETE("/file", api.detachDraftFile)
	pg.POST("/submit", api.submitDraft)
}

// respond sends the session state, delivering its pending notices.
func respond(ctx echo.Context, code int, sess *session.Session) error {
	return ctx.JSON(code, sess.Snapshot())
}

// Handlers

func (api *appApi) state(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	// a failed load is logged by the session and shows as `loaded: false`
	_ = sess.EnsureLoaded(ctx.Request().Context())
	return respond(ctx, http.StatusOK, sess)
}

func (api *appApi) reset(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = api.sessions.DeleteSession(usr.ID); err != nil && !errors.Is(err, core.ErrNotFound) {
		return errors.Wrap(err, "deleting session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *appApi) refresh(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	if err = sess.Refresh(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "refreshing session")
	}
	return respond(ctx, http.StatusOK, sess)
}

func (api *appApi) dashboard(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	top, err := bindTop(ctx, api.conf.TopCompetencies)
	if err != nil {
		return err
	}
	_ = sess.EnsureLoaded(ctx.Request().Context())
	return ctx.JSON(http.StatusOK, sess.Summary(top))
}

func (api *appApi) navigate(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var data NavigateRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NavigateRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = sess.Navigate(session.View(data.View), usr); err != nil {
		return errors.Wrap(err, "navigating")
	}
	return respond(ctx, http.StatusOK, sess)
}

func (api *appApi) openTaskList(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var data OpenTaskListRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OpenTaskListRequest")
	}
	if err = sess.OpenTaskList(ctx.Request().Context(), data.Area, data.Sub); err != nil {
		return errors.Wrap(err, "opening task list")
	}
	return respond(ctx, http.StatusOK, sess)
}

func (api *appApi) closeTaskList(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	sess.CloseTaskList()
	return respond(ctx, http.StatusOK, sess)
}

func (api *appApi) openCompletion(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var data OpenCompletionRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OpenCompletionRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}
	if err = sess.OpenCompletion(data.TaskID); err != nil {
		return errors.Wrap(err, "opening completion form")
	}
	return respond(ctx, http.StatusOK, sess)
}

func (api *appApi) updateCompletion(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var data CompletionRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CompletionRequest")
	}
	if err = sess.UpdateCompletion(data.EvidenceDescription, data.Notes); err != nil {
		return errors.Wrap(err, "updating completion form")
	}
	return respond(ctx, http.StatusOK, sess)
}

func (api *appApi) attachCompletionFile(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	file, err := bindFile(ctx, api.conf.Server.MaxUploadSize)
	if err != nil {
		return err
	}
	if err = sess.AttachCompletionFile(file); err != nil {
		return errors.Wrap(err, "attaching completion file")
	}
	return respond(ctx, http.StatusOK, sess)
}

func (api *appApi) detachCompletionFile(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	if err = sess.AttachCompletionFile(nil); err != nil {
		return errors.Wrap(err, "detaching completion file")
	}
	return respond(ctx, http.StatusOK, sess)
}

func (api *appApi) submitCompletion(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	if err = sess.SubmitCompletion(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "submitting completion")
	}
	return respond(ctx, http.StatusOK, sess)
}

func (api *appApi) cancelCompletion(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	sess.CancelCompletion()
	return respond(ctx, http.StatusOK, sess)
}

func (api *appApi) editDraft(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var data DraftRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DraftRequest")
	}
	if err = sess.EditDraft(data.Title, data.Description); err != nil {
		return errors.Wrap(err, "editing draft")
	}
	return respond(ctx, http.StatusOK, sess)
}

func (api *appApi) toggleDraftCompetency(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	if err = sess.ToggleDraftCompetency(ctx.Param("key")); err != nil {
		return errors.Wrap(err, "toggling draft competency")
	}
	return respond(ctx, http.StatusOK, sess)
}

func (api *appApi) setDraftTags(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	var data TagsRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TagsRequest")
	}
	if err = sess.SetDraftTags(data.Tags); err != nil {
		return errors.Wrap(err, "setting draft tags")
	}
	return respond(ctx, http.StatusOK, sess)
}

func (api *appApi) attachDraftFile(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	file, err := bindFile(ctx, api.conf.Server.MaxUploadSize)
	if err != nil {
		return err
	}
	if err = sess.AttachDraftFile(file); err != nil {
		return errors.Wrap(err, "attaching draft file")
	}
	return respond(ctx, http.StatusOK, sess)
}

func (api *appApi) detachDraftFile(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	if err = sess.AttachDraftFile(nil); err != nil {
		return errors.Wrap(err, "detaching draft file")
	}
	return respond(ctx, http.StatusOK, sess)
}

func (api *appApi) submitDraft(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return err
	}
	if _, err = sess.SubmitDraft(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "submitting draft")
	}
	return respond(ctx, http.StatusCreated, sess)
}

type (
	NavigateRequest struct {
		View string `json:"view" validate:"required"`
	}

	OpenTaskListRequest struct {
		Area string `json:"area"`
		Sub  string `json:"sub"`
	}

	OpenCompletionRequest struct {
		TaskID core.ID `json:"task_id" validate:"required"`
	}

	CompletionRequest struct {
		EvidenceDescription string `json:"evidence_description"`
		Notes               string `json:"notes"`
	}

	DraftRequest struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}

	TagsRequest struct {
		Tags string `json:"tags"`
	}
)

func (nr *NavigateRequest) Validate(validate *validator.Validate) error {
	nr.View = core.CleanString(nr.View, true /* lower */)
	return validate.Struct(nr)
}
