package workflow

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/abaranti/abaranti/internal/platform/auth"
	"github.com/abaranti/abaranti/internal/platform/db"
	"github.com/abaranti/abaranti/internal/platform/pending"
	"github.com/abaranti/abaranti/internal/platform/render"
)

const (
	ActionConfirm = "confirm"
	// ActionBack and ActionCancel return to the input step with the pending
	// change kept as the form's prefill.
	ActionBack   = "back"
	ActionCancel = "cancel"
	// ActionDiscard drops the pending change and leaves the workflow.
	ActionDiscard = "discard"
)

// Messages shown through the flash channel.
const (
	MsgRestart   = "Nothing is waiting for confirmation. Please enter the details again."
	MsgStale     = "A newer submission replaced the one you confirmed. Please review it."
	MsgDiscarded = "The submission was discarded."
)

// FlowConfig wires one Definition and mode to HTTP routes.
type FlowConfig struct {
	Definition *Definition
	Mode       pending.Mode
	// Path is the input route, e.g. "/hospitals/new" or "/hospitals/:id/phone".
	// The confirm step is served at Path + "/confirm".
	Path string
	// TargetID resolves the record an update flow edits. Defaults to the
	// ":id" path parameter; nil result means create mode.
	TargetID func(c echo.Context) string
	// DonePath is where a successful commit redirects.
	DonePath func(c echo.Context, ch *pending.Change) string
	// DoneMessage is flashed after a successful commit.
	DoneMessage func(ch *pending.Change) string
	// CancelPath is where the discard action and the form's cancel link go.
	CancelPath func(c echo.Context) string
	// Prefill seeds a create form that has no pending change behind it.
	Prefill func(c echo.Context) map[string]string
}

// Flow serves the input and confirm steps of one FlowConfig.
type Flow struct {
	engine *Engine
	cfg    FlowConfig
}

func NewFlow(engine *Engine, cfg FlowConfig) *Flow {
	if cfg.TargetID == nil {
		if cfg.Mode == pending.ModeUpdate {
			cfg.TargetID = func(c echo.Context) string { return c.Param("id") }
		} else {
			cfg.TargetID = func(echo.Context) string { return "" }
		}
	}
	if cfg.CancelPath == nil {
		cfg.CancelPath = menuPath
	}
	if cfg.DonePath == nil {
		cfg.DonePath = func(c echo.Context, _ *pending.Change) string { return menuPath(c) }
	}
	if cfg.DoneMessage == nil {
		title := cfg.Definition.Title
		cfg.DoneMessage = func(*pending.Change) string { return title + " completed." }
	}
	return &Flow{engine: engine, cfg: cfg}
}

func menuPath(c echo.Context) string {
	if sess := auth.SessionFromContext(c.Request().Context()); sess != nil {
		if p := auth.MenuPath(sess.Role); p != "" {
			return p
		}
	}
	return "/"
}

// RegisterRoutes mounts the four handlers on g.
func (f *Flow) RegisterRoutes(g *echo.Group, mw ...echo.MiddlewareFunc) {
	g.GET(f.cfg.Path, f.ShowInput, mw...)
	g.POST(f.cfg.Path, f.SubmitInput, mw...)
	g.GET(f.cfg.Path+"/confirm", f.ShowConfirm, mw...)
	g.POST(f.cfg.Path+"/confirm", f.SubmitConfirm, mw...)
}

func sessionID(c echo.Context) (string, error) {
	sess := auth.SessionFromContext(c.Request().Context())
	if sess == nil || sess.ID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}
	return sess.ID, nil
}

func inputPath(c echo.Context) string {
	return strings.TrimSuffix(c.Request().URL.Path, "/confirm")
}

func confirmPath(c echo.Context) string {
	return inputPath(c) + "/confirm"
}

func (f *Flow) formView(c echo.Context, values map[string]string, verrs ValidationErrors) FormView {
	def := f.cfg.Definition
	byField := verrs.ByField()
	view := FormView{
		Title:      def.Title,
		Action:     inputPath(c),
		Mode:       f.cfg.Mode,
		TargetID:   f.cfg.TargetID(c),
		Fields:     buildForm(def, f.cfg.Mode, values, byField),
		CancelPath: f.cfg.CancelPath(c),
	}
	if msg, ok := byField[""]; ok {
		view.Errors = append(view.Errors, msg)
	}
	return view
}

// ShowInput renders the input form, prefilled from the pending change when
// the user came back from the confirm page, else from the stored record.
func (f *Flow) ShowInput(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	def := f.cfg.Definition
	target := f.cfg.TargetID(c)

	vals, err := f.engine.Back(ctx, sid, def, f.cfg.Mode, target)
	switch {
	case err == nil:
	case errors.Is(err, ErrMissingPendingChange):
		vals = nil
		if f.cfg.Mode == pending.ModeUpdate {
			vals, err = def.Backend.Load(ctx, target)
			if errors.Is(err, db.ErrNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, def.Title+": record "+target+" not found")
			}
			if err != nil {
				return err
			}
		}
	default:
		return err
	}

	values := formValues(def, vals)
	if vals == nil && f.cfg.Prefill != nil {
		values = f.cfg.Prefill(c)
	}
	return c.Render(http.StatusOK, "form", f.formView(c, values, nil))
}

// SubmitInput validates and stages the submission, then redirects to the
// confirm step. User errors re-render the form with messages.
func (f *Flow) SubmitInput(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return err
	}
	def := f.cfg.Definition

	raw := make(map[string]string)
	for _, field := range def.EditableFields(f.cfg.Mode) {
		raw[field.Name] = c.FormValue(field.Name)
	}

	target := f.cfg.TargetID(c)
	_, err = f.engine.Stage(c.Request().Context(), sid, def, f.cfg.Mode, target, raw)
	if err != nil {
		verrs, ok := AsValidationErrors(err)
		if errors.Is(err, db.ErrNotFound) && !ok {
			return echo.NewHTTPError(http.StatusNotFound, def.Title+": record "+target+" not found")
		}
		if !ok {
			return err
		}
		return c.Render(http.StatusUnprocessableEntity, "form", f.formView(c, raw, verrs))
	}
	return c.Redirect(http.StatusSeeOther, confirmPath(c))
}

// ShowConfirm renders the staged change for review.
func (f *Flow) ShowConfirm(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return err
	}
	ch, err := f.engine.Review(c.Request().Context(), sid, f.cfg.Definition, f.cfg.Mode, f.cfg.TargetID(c))
	if errors.Is(err, ErrMissingPendingChange) {
		render.SetFlash(c, render.FlashInfo, MsgRestart)
		return c.Redirect(http.StatusSeeOther, inputPath(c))
	}
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "confirm", f.confirmView(c, ch, nil))
}

func (f *Flow) confirmView(c echo.Context, ch *pending.Change, errs []string) ConfirmView {
	def := f.cfg.Definition
	return ConfirmView{
		Title:    def.Title,
		Action:   confirmPath(c),
		Token:    ch.Token,
		TargetID: ch.TargetID,
		Rows:     confirmRows(def, f.cfg.Mode, Values(ch.Fields)),
		Errors:   errs,
	}
}

// SubmitConfirm handles the confirm, back, cancel and discard actions.
func (f *Flow) SubmitConfirm(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	def := f.cfg.Definition
	target := f.cfg.TargetID(c)

	switch c.FormValue("action") {
	case ActionBack, ActionCancel:
		return c.Redirect(http.StatusSeeOther, inputPath(c))

	case ActionDiscard:
		if err := f.engine.Discard(ctx, sid, def); err != nil {
			return err
		}
		render.SetFlash(c, render.FlashInfo, MsgDiscarded)
		return c.Redirect(http.StatusSeeOther, f.cfg.CancelPath(c))
	}

	ch, err := f.engine.Confirm(ctx, sid, def, f.cfg.Mode, target, c.FormValue("token"))
	var pf *PersistenceFailure
	switch {
	case err == nil:
		render.SetFlash(c, render.FlashSuccess, f.cfg.DoneMessage(ch))
		return c.Redirect(http.StatusSeeOther, f.cfg.DonePath(c, ch))

	case errors.Is(err, ErrMissingPendingChange):
		render.SetFlash(c, render.FlashInfo, MsgRestart)
		return c.Redirect(http.StatusSeeOther, inputPath(c))

	case errors.Is(err, ErrStalePendingChange):
		render.SetFlash(c, render.FlashInfo, MsgStale)
		return c.Redirect(http.StatusSeeOther, confirmPath(c))

	case errors.As(err, &pf):
		status := http.StatusInternalServerError
		msg := "The record could not be saved. Please try again."
		if errors.Is(err, db.ErrDuplicate) {
			status = http.StatusConflict
			msg = "The record could not be saved because its ID is already registered."
		}
		staged, rerr := f.engine.Review(ctx, sid, def, f.cfg.Mode, target)
		if errors.Is(rerr, ErrMissingPendingChange) {
			render.SetFlash(c, render.FlashInfo, MsgRestart)
			return c.Redirect(http.StatusSeeOther, inputPath(c))
		}
		if rerr != nil {
			return rerr
		}
		return c.Render(status, "confirm", f.confirmView(c, staged, []string{msg}))

	default:
		return err
	}
}
