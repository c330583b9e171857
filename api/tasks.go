package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskzen-api/domain"
)

// listFilterFromQuery reads the general task-list filters. Unknown enum
// values and unparsable booleans are ignored, matching the endpoint's
// permissive contract.
func listFilterFromQuery(c echo.Context) domain.ListFilter {
	f := domain.ListFilter{
		Status:   strings.TrimSpace(c.QueryParam("status")),
		Priority: strings.TrimSpace(c.QueryParam("priority")),
		Search:   c.QueryParam("search"),
	}
	if raw := c.QueryParam("flagged"); raw != "" {
		if flagged, err := strconv.ParseBool(raw); err == nil {
			f.Flagged = &flagged
		}
	}
	if raw := c.QueryParam("all"); raw != "" {
		if all, err := strconv.ParseBool(raw); err == nil {
			f.All = all
		}
	}
	return f
}

func listTasks(tasks TaskBoard, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newTaskRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		filter := listFilterFromQuery(c)
		metrics.SetFilterProvided(filter != domain.ListFilter{})

		queryStart := time.Now()
		list, listErr := tasks.List(ctx, principal(c).ID, filter)
		metrics.ObserveQuery(time.Since(queryStart))
		if listErr != nil {
			metrics.SetErrorStage("query")
			err = fail(c, listErr)
			return err
		}
		metrics.SetTasksReturned(len(list))

		encodeStart := time.Now()
		err = respond(c, http.StatusOK, list)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func listAssignedTasks(tasks TaskBoard) echo.HandlerFunc {
	return func(c echo.Context) error {
		list, err := tasks.Assigned(c.Request().Context(), principal(c).ID)
		if err != nil {
			return fail(c, err)
		}
		return respond(c, http.StatusOK, list)
	}
}

func searchAllTasks(tasks TaskBoard) echo.HandlerFunc {
	return func(c echo.Context) error {
		results, err := tasks.SearchAll(c.Request().Context(), principal(c).ID, c.QueryParam("search"))
		if err != nil {
			return fail(c, err)
		}
		return respond(c, http.StatusOK, results)
	}
}

func taskView(tasks TaskBoard, view domain.TaskView) echo.HandlerFunc {
	return func(c echo.Context) error {
		list, err := tasks.View(c.Request().Context(), principal(c).ID, view, c.QueryParam("search"))
		if err != nil {
			return fail(c, err)
		}
		return respond(c, http.StatusOK, list)
	}
}

func getTask(tasks TaskBoard) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		if errs := validatePathID(id); errs != nil {
			return failValidation(c, errs)
		}
		task, err := tasks.Get(c.Request().Context(), principal(c).ID, id)
		if err != nil {
			return fail(c, err)
		}
		return respond(c, http.StatusOK, task)
	}
}

type taskRequestBody struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	Priority    *string    `json:"priority"`
	Status      *string    `json:"status"`
	Flagged     *bool      `json:"flagged"`
}

func createTask(tasks TaskBoard) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req taskRequestBody
		if err := decodeBody(c, &req); err != nil {
			return fail(c, err)
		}
		draft := domain.TaskDraft{DueDate: req.DueDate}
		if req.Title != nil {
			draft.Title = *req.Title
		}
		if req.Description != nil {
			draft.Description = *req.Description
		}
		if req.Priority != nil {
			draft.Priority = domain.TaskPriority(*req.Priority)
		}
		if req.Status != nil {
			draft.Status = domain.TaskStatus(*req.Status)
		}
		if req.Flagged != nil {
			draft.Flagged = *req.Flagged
		}

		created, err := tasks.Create(c.Request().Context(), principal(c).ID, draft)
		if err != nil {
			return fail(c, err)
		}
		return respond(c, http.StatusCreated, created)
	}
}

// updateTaskBody distinguishes "dueDate absent" from "dueDate: null": an
// explicit null clears the stored due date.
type updateTaskBody struct {
	taskRequestBody
	DueDate dueDateField `json:"dueDate"`
}

type dueDateField struct {
	set   bool
	value *time.Time
}

func (f *dueDateField) UnmarshalJSON(data []byte) error {
	f.set = true
	if string(data) == "null" {
		f.value = nil
		return nil
	}
	var t time.Time
	if err := t.UnmarshalJSON(data); err != nil {
		return err
	}
	f.value = &t
	return nil
}

func updateTask(tasks TaskBoard) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		if errs := validatePathID(id); errs != nil {
			return failValidation(c, errs)
		}
		var req updateTaskBody
		if err := decodeBody(c, &req); err != nil {
			return fail(c, err)
		}

		patch := domain.TaskPatch{
			Title:       req.Title,
			Description: req.Description,
			Flagged:     req.Flagged,
		}
		if req.DueDate.set {
			if req.DueDate.value == nil {
				patch.ClearDueDate = true
			} else {
				patch.DueDate = req.DueDate.value
			}
		}
		if req.Priority != nil {
			p := domain.TaskPriority(*req.Priority)
			patch.Priority = &p
		}
		if req.Status != nil {
			s := domain.TaskStatus(*req.Status)
			patch.Status = &s
		}

		updated, err := tasks.Update(c.Request().Context(), principal(c).ID, id, patch)
		if err != nil {
			return fail(c, err)
		}
		return respond(c, http.StatusOK, updated)
	}
}

func deleteTask(tasks TaskBoard) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		if errs := validatePathID(id); errs != nil {
			return failValidation(c, errs)
		}
		if err := tasks.Delete(c.Request().Context(), principal(c).ID, id); err != nil {
			return fail(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

type assignTaskBody struct {
	FriendID string `json:"friendId"`
}

func assignTask(tasks TaskBoard) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Param("id")
		if errs := validatePathID(id); errs != nil {
			return failValidation(c, errs)
		}
		var req assignTaskBody
		if err := decodeBody(c, &req); err != nil {
			return fail(c, err)
		}
		created, err := tasks.Assign(c.Request().Context(), principal(c), id, req.FriendID)
		if err != nil {
			return fail(c, err)
		}
		return respond(c, http.StatusCreated, created)
	}
}
