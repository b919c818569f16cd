package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turnstilehq/turnstile/internal/engine"
	"github.com/turnstilehq/turnstile/internal/store"
	"github.com/turnstilehq/turnstile/internal/util"
	"github.com/turnstilehq/turnstile/pkg/api"
)

// ErrStepCycle reports next_step_id configuration that routes a completing
// step back to a step already run in the same advancement pass
var ErrStepCycle = errors.New("step advancement cycle")

func (s *Server) createForm(c *gin.Context) {
	var form api.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, err)
		return
	}
	if form.ID == "" {
		form.ID = api.SanitizeID(api.FormID(form.Title))
	}
	if err := s.repo.PutForm(c.Request.Context(), &form); err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, &form)
}

func (s *Server) getForm(c *gin.Context) {
	form, err := s.repo.Form(
		c.Request.Context(), api.FormID(c.Param("formID")),
	)
	if err != nil {
		notFound(c, err)
		return
	}
	c.JSON(http.StatusOK, form)
}

func (s *Server) listSteps(c *gin.Context) {
	steps, err := s.repo.Steps(
		c.Request.Context(), api.FormID(c.Param("formID")),
	)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, steps)
}

func (s *Server) replaceSteps(c *gin.Context) {
	var req api.StepListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	formID := api.FormID(c.Param("formID"))
	for _, step := range req.Steps {
		step.FormID = formID
	}
	if err := s.repo.PutSteps(
		c.Request.Context(), formID, req.Steps,
	); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, req.Steps)
}

func (s *Server) createEntry(c *gin.Context) {
	var entry api.Entry
	if err := c.ShouldBindJSON(&entry); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.repo.PutEntry(c.Request.Context(), &entry); err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, &entry)
}

func (s *Server) getEntry(c *gin.Context) {
	entry, err := s.repo.Entry(
		c.Request.Context(), api.EntryID(c.Param("entryID")),
	)
	if err != nil {
		notFound(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) startStep(c *gin.Context) {
	var req api.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.Body != nil &&
		c.Request.ContentLength > 0 {
		badRequest(c, err)
		return
	}
	actor := req.Actor
	if actor == (api.Actor{}) {
		actor = api.SystemActor
	}

	result, err := s.trigger(
		c.Request.Context(),
		api.FormID(c.Param("formID")),
		api.EntryID(c.Param("entryID")),
		api.StepID(c.Param("stepID")),
		actor,
	)
	if err != nil {
		if errors.Is(err, ErrStepCycle) {
			c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{
				Error:  err.Error(),
				Status: http.StatusUnprocessableEntity,
			})
			return
		}
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) updateAssigneeStatus(c *gin.Context) {
	var req api.AssigneeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	actor := req.Actor
	if actor == (api.Actor{}) {
		actor = api.Actor{UserID: req.Assignee.ID}
	}

	ctx := c.Request.Context()
	formID := api.FormID(c.Param("formID"))
	entryID := api.EntryID(c.Param("entryID"))

	step, err := s.repo.Step(ctx, formID, api.StepID(c.Param("stepID")))
	if err != nil {
		notFound(c, err)
		return
	}

	run, err := s.engine.NewRun(ctx, step, entryID, actor)
	if err != nil {
		internalError(c, err)
		return
	}

	invalid, err := run.UpdateAssigneeStatus(
		ctx, req.Assignee, req.Status, req.Note,
	)
	if err != nil {
		internalError(c, err)
		return
	}
	if invalid != nil {
		c.JSON(http.StatusUnprocessableEntity, api.AssigneeStatusResult{
			Accepted:      false,
			InvalidReason: invalid.Reason,
		})
		return
	}

	next, ended, err := run.EndIfComplete(ctx)
	if err != nil {
		internalError(c, err)
		return
	}

	status, err := run.EvaluateStatus(ctx)
	if err != nil {
		internalError(c, err)
		return
	}

	if ended {
		if err := s.advance(ctx, formID, entryID, step.ID, next); err != nil {
			internalError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, api.AssigneeStatusResult{
		Accepted:   true,
		StepStatus: status,
		Complete:   ended,
	})
}

func (s *Server) getStepStatus(c *gin.Context) {
	ctx := c.Request.Context()
	entryID := api.EntryID(c.Param("entryID"))

	run, err := s.newRun(c, entryID)
	if err != nil {
		return
	}
	status, err := run.EvaluateStatus(ctx)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.StatusResponse{
		StepID:  run.Step().ID,
		EntryID: entryID,
		Status:  status,
	})
}

func (s *Server) getStepAssignees(c *gin.Context) {
	ctx := c.Request.Context()
	entryID := api.EntryID(c.Param("entryID"))

	run, err := s.newRun(c, entryID)
	if err != nil {
		return
	}
	assignees, err := run.Assignees(ctx)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.AssigneesResponse{
		StepID:    run.Step().ID,
		EntryID:   entryID,
		Assignees: assignees,
		Count:     len(assignees),
	})
}

func (s *Server) newRun(
	c *gin.Context, entryID api.EntryID,
) (*engine.Run, error) {
	ctx := c.Request.Context()
	step, err := s.repo.Step(
		ctx, api.FormID(c.Param("formID")), api.StepID(c.Param("stepID")),
	)
	if err != nil {
		notFound(c, err)
		return nil, err
	}
	run, err := s.engine.NewRun(ctx, step, entryID, api.SystemActor)
	if err != nil {
		internalError(c, err)
		return nil, err
	}
	return run, nil
}

// trigger runs one step and, when it completes immediately, advances through
// successors until the workflow comes to rest on an incomplete step or runs
// out of steps. A step revisited within one pass is a configuration cycle:
// every step on the chain completed without resting, so the loop could
// never terminate
func (s *Server) trigger(
	ctx context.Context, formID api.FormID, entryID api.EntryID,
	stepID api.StepID, actor api.Actor,
) (*api.StartResult, error) {
	steps, err := s.repo.Steps(ctx, formID)
	if err != nil {
		return nil, err
	}

	step, err := findInList(steps, stepID)
	if err != nil {
		return nil, err
	}

	visited := util.Set[api.StepID]{}
	for step != nil {
		if visited.Contains(step.ID) {
			return nil, fmt.Errorf("%w: %s revisits %s",
				ErrStepCycle, entryID, step.ID)
		}
		visited.Add(step.ID)

		run, err := s.engine.NewRun(ctx, step, entryID, actor)
		if err != nil {
			return nil, err
		}

		complete, err := run.Start(ctx)
		if err != nil {
			return nil, err
		}
		if !complete {
			s.scheduleFollowups(ctx, run)
			status, err := run.EvaluateStatus(ctx)
			if err != nil {
				return nil, err
			}
			return &api.StartResult{
				StepID: step.ID,
				Status: status,
			}, nil
		}

		// A step that ended on an earlier pass keeps its recorded
		// destination; only a fresh completion is finalized here
		var next api.NextStep
		if run.Ended() {
			next = run.NextStepID()
		} else {
			if next, err = run.End(ctx); err != nil {
				return nil, err
			}
		}

		prev := step
		step = store.NextActiveStep(steps, prev.ID, next)
		if step == nil {
			return &api.StartResult{
				StepID:   prev.ID,
				Status:   api.StatusComplete,
				Complete: true,
			}, nil
		}
		actor = api.SystemActor
	}

	return nil, fmt.Errorf("%w: %s", store.ErrStepNotFound, stepID)
}

// advance continues the workflow from a step that just ended
func (s *Server) advance(
	ctx context.Context, formID api.FormID, entryID api.EntryID,
	from api.StepID, next api.NextStep,
) error {
	steps, err := s.repo.Steps(ctx, formID)
	if err != nil {
		return err
	}
	nextStep := store.NextActiveStep(steps, from, next)
	if nextStep == nil {
		return nil
	}
	_, err = s.trigger(ctx, formID, entryID, nextStep.ID, api.SystemActor)
	return err
}

// scheduleFollowups registers sweeper wake-ups for a step that did not
// complete: queued steps wake when their schedule arrives, and expiring
// steps are re-checked at their deadline
func (s *Server) scheduleFollowups(ctx context.Context, run *engine.Run) {
	if s.sweeper == nil {
		return
	}

	step := run.Step()
	entryID := run.EntryID()
	formID := step.FormID

	if at, ok, err := run.ScheduleTimestamp(ctx); err == nil && ok {
		key := fmt.Sprintf("sched|%s|%s", entryID, step.ID)
		s.sweeper.Schedule(ctx, key, at, func(tctx context.Context) error {
			_, err := s.trigger(
				tctx, formID, entryID, step.ID, api.SystemActor,
			)
			return err
		})
	}

	if at, ok, err := run.ExpirationTimestamp(ctx); err == nil && ok {
		key := fmt.Sprintf("exp|%s|%s", entryID, step.ID)
		s.sweeper.Schedule(ctx, key, at, func(tctx context.Context) error {
			return s.finalizeIfComplete(tctx, formID, entryID, step.ID)
		})
	}
}

func (s *Server) finalizeIfComplete(
	ctx context.Context, formID api.FormID, entryID api.EntryID,
	stepID api.StepID,
) error {
	step, err := s.repo.Step(ctx, formID, stepID)
	if err != nil {
		return err
	}
	run, err := s.engine.NewRun(ctx, step, entryID, api.SystemActor)
	if err != nil {
		return err
	}
	next, ended, err := run.EndIfComplete(ctx)
	if err != nil || !ended {
		return err
	}
	return s.advance(ctx, formID, entryID, stepID, next)
}

func findInList(steps []*api.Step, id api.StepID) (*api.Step, error) {
	for _, step := range steps {
		if step.ID == id {
			return step, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", store.ErrStepNotFound, id)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, api.ErrorResponse{
		Error:  err.Error(),
		Status: http.StatusBadRequest,
	})
}

func notFound(c *gin.Context, err error) {
	c.JSON(http.StatusNotFound, api.ErrorResponse{
		Error:  err.Error(),
		Status: http.StatusNotFound,
	})
}

func internalError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, api.ErrorResponse{
		Error:  err.Error(),
		Status: http.StatusInternalServerError,
	})
}
