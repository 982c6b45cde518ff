package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/planforge/sprint-planner/internal/entities"
	"github.com/planforge/sprint-planner/internal/repository"
	"github.com/planforge/sprint-planner/internal/usecase/capacity"
	"github.com/planforge/sprint-planner/internal/usecase/sprint"
	"github.com/planforge/sprint-planner/pkg/logger"
)

type Handler struct {
	sprints  sprint.UseCase
	repo     repository.Repository
	apiToken string
	defaults capacity.Options
	logger   logger.Logger
}

func New(sprints sprint.UseCase, repo repository.Repository, apiToken string, defaults capacity.Options, log logger.Logger) *Handler {
	return &Handler{
		sprints:  sprints,
		repo:     repo,
		apiToken: apiToken,
		defaults: defaults,
		logger:   log,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware)
		r.Post("/developers", h.handleCreateDeveloper)
		r.Post("/tasks", h.handleCreateTask)
		r.Get("/capacity", h.handleCapacity)
		r.Post("/sprints/plan", h.handlePlanSprint)
		r.Post("/sprints/{sprintID}/rebalance", h.handleRebalance)
		r.Get("/sprints/{sprintID}/retrospective", h.handleRetrospective)
		r.Get("/velocity/forecast", h.handleVelocityForecast)
	})
	return r
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.authorized(r) {
			next.ServeHTTP(w, r)
			return
		}
		h.logger.Error("unauthorized request", "path", r.URL.Path)
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
	})
}

func (h *Handler) authorized(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	if len(header) < 8 || header[:7] != "Bearer " {
		return false
	}
	return header[7:] == h.apiToken
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

type developerRequest struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Velocity           float64  `json:"velocity"`
	Strengths          []string `json:"strengths"`
	PreferredTaskTypes []string `json:"preferred_task_types"`
	CodeQuality        float64  `json:"code_quality"`
	Collaboration      float64  `json:"collaboration"`
	IsActive           *bool    `json:"is_active"`
}

type developerSchema struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Velocity           float64  `json:"velocity"`
	Strengths          []string `json:"strengths"`
	PreferredTaskTypes []string `json:"preferred_task_types"`
	CodeQuality        float64  `json:"code_quality"`
	Collaboration      float64  `json:"collaboration"`
	IsActive           bool     `json:"is_active"`
}

func toDeveloperSchema(dev entities.Developer) developerSchema {
	preferred := make([]string, 0, len(dev.PreferredTaskTypes))
	for _, t := range dev.PreferredTaskTypes {
		preferred = append(preferred, string(t))
	}
	return developerSchema{
		ID:                 dev.ID,
		Name:               dev.Name,
		Velocity:           dev.Velocity,
		Strengths:          append([]string{}, dev.Strengths...),
		PreferredTaskTypes: preferred,
		CodeQuality:        dev.CodeQuality,
		Collaboration:      dev.Collaboration,
		IsActive:           dev.IsActive,
	}
}

func (h *Handler) handleCreateDeveloper(w http.ResponseWriter, r *http.Request) {
	var req developerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode developer request", "error", err)
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "name required")
		return
	}

	preferred := make([]entities.TaskType, 0, len(req.PreferredTaskTypes))
	for _, raw := range req.PreferredTaskTypes {
		t := entities.TaskType(raw)
		if !t.IsValid() {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid task type: "+raw)
			return
		}
		preferred = append(preferred, t)
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	dev, err := h.repo.CreateDeveloper(r.Context(), entities.Developer{
		ID:                 req.ID,
		Name:               req.Name,
		Velocity:           req.Velocity,
		Strengths:          req.Strengths,
		PreferredTaskTypes: preferred,
		CodeQuality:        req.CodeQuality,
		Collaboration:      req.Collaboration,
		IsActive:           active,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDeveloperSchema(dev))
}

type taskRequest struct {
	ID                   string   `json:"id"`
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	Type                 string   `json:"type"`
	Priority             string   `json:"priority"`
	EstimatedEffortHours float64  `json:"estimated_effort_hours"`
	StoryPoints          int      `json:"story_points"`
	Dependencies         []string `json:"dependencies"`
}

type taskSchema struct {
	ID                   string   `json:"id"`
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	Type                 string   `json:"type"`
	Priority             string   `json:"priority"`
	EstimatedEffortHours float64  `json:"estimated_effort_hours"`
	StoryPoints          int      `json:"story_points"`
	AssigneeID           *string  `json:"assignee_id,omitempty"`
	SprintID             *string  `json:"sprint_id,omitempty"`
	Dependencies         []string `json:"dependencies"`
	Status               string   `json:"status"`
}

func toTaskSchema(t entities.Task) taskSchema {
	return taskSchema{
		ID:                   t.ID,
		Title:                t.Title,
		Description:          t.Description,
		Type:                 string(t.Type),
		Priority:             string(t.Priority),
		EstimatedEffortHours: t.EstimatedEffortHours,
		StoryPoints:          t.StoryPoints,
		AssigneeID:           t.AssigneeID,
		SprintID:             t.SprintID,
		Dependencies:         append([]string{}, t.Dependencies...),
		Status:               string(t.Status),
	}
}

func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode task request", "error", err)
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "title required")
		return
	}
	taskType := entities.TaskType(req.Type)
	if !taskType.IsValid() {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid task type: "+req.Type)
		return
	}
	priority := entities.TaskPriority(req.Priority)
	if !priority.IsValid() {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid priority: "+req.Priority)
		return
	}
	if req.EstimatedEffortHours <= 0 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "estimated_effort_hours must be positive")
		return
	}

	task, err := h.repo.CreateTask(r.Context(), entities.Task{
		ID:                   req.ID,
		Title:                req.Title,
		Description:          req.Description,
		Type:                 taskType,
		Priority:             priority,
		EstimatedEffortHours: req.EstimatedEffortHours,
		StoryPoints:          req.StoryPoints,
		Dependencies:         req.Dependencies,
		Status:               entities.StatusTodo,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskSchema(task))
}

type developerCapacitySchema struct {
	DeveloperID          string  `json:"developer_id"`
	Name                 string  `json:"name"`
	Velocity             float64 `json:"velocity"`
	AvailableHours       float64 `json:"available_hours"`
	CurrentLoadHours     float64 `json:"current_load_hours"`
	SkillMatch           float64 `json:"skill_match"`
	RecommendedTaskCount int     `json:"recommended_task_count"`
}

type recommendationSchema struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Action   string `json:"action"`
	Priority string `json:"priority"`
}

type capacityPlanSchema struct {
	TotalCapacity     float64                   `json:"total_capacity"`
	AvailableCapacity float64                   `json:"available_capacity"`
	TeamVelocity      float64                   `json:"team_velocity"`
	Developers        []developerCapacitySchema `json:"developers"`
	Health            string                    `json:"health"`
	Recommendations   []recommendationSchema    `json:"recommendations"`
}

func toCapacityPlanSchema(plan entities.CapacityPlan) capacityPlanSchema {
	developers := make([]developerCapacitySchema, 0, len(plan.Developers))
	for _, dc := range plan.Developers {
		developers = append(developers, developerCapacitySchema{
			DeveloperID:          dc.DeveloperID,
			Name:                 dc.Name,
			Velocity:             dc.Velocity,
			AvailableHours:       dc.AvailableHours,
			CurrentLoadHours:     dc.CurrentLoadHours,
			SkillMatch:           dc.SkillMatch,
			RecommendedTaskCount: dc.RecommendedTaskCount,
		})
	}
	recommendations := make([]recommendationSchema, 0, len(plan.Recommendations))
	for _, rec := range plan.Recommendations {
		recommendations = append(recommendations, recommendationSchema{
			Type:     string(rec.Type),
			Message:  rec.Message,
			Action:   rec.Action,
			Priority: string(rec.Priority),
		})
	}
	return capacityPlanSchema{
		TotalCapacity:     plan.TotalCapacity,
		AvailableCapacity: plan.AvailableCapacity,
		TeamVelocity:      plan.TeamVelocity,
		Developers:        developers,
		Health:            string(plan.Health),
		Recommendations:   recommendations,
	}
}

func (h *Handler) handleCapacity(w http.ResponseWriter, r *http.Request) {
	opts, err := h.capacityOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	plan, err := h.sprints.ComputeCapacity(r.Context(), opts)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCapacityPlanSchema(plan))
}

type planSprintRequest struct {
	Name               string  `json:"name"`
	StartDate          string  `json:"start_date"`
	EndDate            string  `json:"end_date"`
	SprintDurationDays int     `json:"sprint_duration_days"`
	BufferPercentage   float64 `json:"buffer_percentage"`
	AutoAssign         bool    `json:"auto_assign"`
}

type sprintSchema struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	Status         string  `json:"status"`
	CapacityHours  float64 `json:"capacity_hours"`
	VelocityTarget float64 `json:"velocity_target"`
}

func toSprintSchema(s entities.Sprint) sprintSchema {
	return sprintSchema{
		ID:             s.ID,
		Name:           s.Name,
		StartDate:      s.StartDate.UTC().Format(time.RFC3339),
		EndDate:        s.EndDate.UTC().Format(time.RFC3339),
		Status:         string(s.Status),
		CapacityHours:  s.CapacityHours,
		VelocityTarget: s.VelocityTarget,
	}
}

type predictionFactorSchema struct {
	Name         string  `json:"name"`
	Score        float64 `json:"score"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

type predictionSchema struct {
	Probability int                      `json:"probability"`
	Factors     []predictionFactorSchema `json:"factors"`
	Suggestions []string                 `json:"suggestions"`
}

func toPredictionSchema(p entities.SuccessPrediction) predictionSchema {
	factors := make([]predictionFactorSchema, 0, len(p.Factors))
	for _, f := range p.Factors {
		factors = append(factors, predictionFactorSchema{
			Name:         f.Name,
			Score:        f.Score,
			Weight:       f.Weight,
			Contribution: f.Contribution,
		})
	}
	return predictionSchema{
		Probability: p.Probability,
		Factors:     factors,
		Suggestions: append([]string{}, p.Suggestions...),
	}
}

type planSprintResponse struct {
	Sprint        sprintSchema       `json:"sprint"`
	Plan          capacityPlanSchema `json:"plan"`
	Prediction    predictionSchema   `json:"prediction"`
	AssignedCount int                `json:"assigned_count"`
	LinkedTaskIDs []string           `json:"linked_task_ids"`
}

func (h *Handler) handlePlanSprint(w http.ResponseWriter, r *http.Request) {
	var req planSprintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode plan request", "error", err)
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "name required")
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid start_date")
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid end_date")
		return
	}

	opts := h.defaults
	if req.SprintDurationDays > 0 {
		opts.SprintDurationDays = req.SprintDurationDays
	}
	if req.BufferPercentage > 0 {
		opts.BufferPercentage = req.BufferPercentage
	}
	result, err := h.sprints.CreateOptimizedSprint(r.Context(), sprint.CreateSprintInput{
		Name:       req.Name,
		StartDate:  start,
		EndDate:    end,
		Options:    opts,
		AutoAssign: req.AutoAssign,
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	linked := result.LinkedTaskIDs
	if linked == nil {
		linked = []string{}
	}
	writeJSON(w, http.StatusCreated, planSprintResponse{
		Sprint:        toSprintSchema(result.Sprint),
		Plan:          toCapacityPlanSchema(result.Plan),
		Prediction:    toPredictionSchema(result.Prediction),
		AssignedCount: result.AssignedCount,
		LinkedTaskIDs: linked,
	})
}

type moveSchema struct {
	TaskID          string  `json:"task_id"`
	FromDeveloperID string  `json:"from_developer_id"`
	ToDeveloperID   string  `json:"to_developer_id"`
	EffortHours     float64 `json:"effort_hours"`
}

type rebalanceResponse struct {
	Moves           []moveSchema `json:"moves"`
	Recommendations []string     `json:"recommendations"`
}

func (h *Handler) handleRebalance(w http.ResponseWriter, r *http.Request) {
	sprintID := chi.URLParam(r, "sprintID")
	opts, err := h.capacityOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	result, err := h.sprints.RebalanceSprint(r.Context(), sprintID, opts)
	if err != nil {
		h.handleError(w, err)
		return
	}

	moves := make([]moveSchema, 0, len(result.Moves))
	for _, m := range result.Moves {
		moves = append(moves, moveSchema{
			TaskID:          m.TaskID,
			FromDeveloperID: m.FromDeveloperID,
			ToDeveloperID:   m.ToDeveloperID,
			EffortHours:     m.EffortHours,
		})
	}
	recommendations := result.Recommendations
	if recommendations == nil {
		recommendations = []string{}
	}
	writeJSON(w, http.StatusOK, rebalanceResponse{Moves: moves, Recommendations: recommendations})
}

type performanceSchema struct {
	DeveloperID    string  `json:"developer_id"`
	Name           string  `json:"name"`
	CompletedTasks int     `json:"completed_tasks"`
	CompletedHours float64 `json:"completed_hours"`
	StoryPoints    int     `json:"story_points"`
}

type retrospectiveResponse struct {
	SprintID         string              `json:"sprint_id"`
	VelocityAchieved int                 `json:"velocity_achieved"`
	CompletionRate   float64             `json:"completion_rate"`
	Performance      []performanceSchema `json:"performance"`
	Blockers         []string            `json:"blockers"`
	Improvements     []string            `json:"improvements"`
	Celebrations     []string            `json:"celebrations"`
}

func (h *Handler) handleRetrospective(w http.ResponseWriter, r *http.Request) {
	sprintID := chi.URLParam(r, "sprintID")

	retro, err := h.sprints.GenerateRetrospective(r.Context(), sprintID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	performance := make([]performanceSchema, 0, len(retro.Performance))
	for _, p := range retro.Performance {
		performance = append(performance, performanceSchema{
			DeveloperID:    p.DeveloperID,
			Name:           p.Name,
			CompletedTasks: p.CompletedTasks,
			CompletedHours: p.CompletedHours,
			StoryPoints:    p.StoryPoints,
		})
	}
	writeJSON(w, http.StatusOK, retrospectiveResponse{
		SprintID:         retro.SprintID,
		VelocityAchieved: retro.VelocityAchieved,
		CompletionRate:   retro.CompletionRate,
		Performance:      performance,
		Blockers:         emptyIfNil(retro.Blockers),
		Improvements:     emptyIfNil(retro.Improvements),
		Celebrations:     emptyIfNil(retro.Celebrations),
	})
}

type forecastResponse struct {
	CurrentVelocity   float64 `json:"current_velocity"`
	AverageVelocity   float64 `json:"average_velocity"`
	Trend             string  `json:"trend"`
	PredictedVelocity float64 `json:"predicted_velocity"`
	Confidence        float64 `json:"confidence"`
}

func (h *Handler) handleVelocityForecast(w http.ResponseWriter, r *http.Request) {
	forecast, err := h.sprints.ForecastVelocity(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, forecastResponse{
		CurrentVelocity:   forecast.CurrentVelocity,
		AverageVelocity:   forecast.AverageVelocity,
		Trend:             string(forecast.Trend),
		PredictedVelocity: forecast.PredictedVelocity,
		Confidence:        forecast.Confidence,
	})
}

func (h *Handler) capacityOptions(r *http.Request) (capacity.Options, error) {
	opts := h.defaults
	if raw := r.URL.Query().Get("duration_days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			return opts, errors.New("invalid duration_days")
		}
		opts.SprintDurationDays = days
	}
	if raw := r.URL.Query().Get("buffer_pct"); raw != "" {
		pct, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return opts, errors.New("invalid buffer_pct")
		}
		opts.BufferPercentage = pct
	}
	return opts, nil
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	h.logger.Error("handler error", "error", err)
	switch {
	case errors.Is(err, entities.ErrNoDevelopers):
		writeError(w, http.StatusBadRequest, "NO_DEVELOPERS", "no active developers")
	case errors.Is(err, entities.ErrInvalidDates):
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "end date must be after start date")
	case errors.Is(err, entities.ErrInvalidEffort):
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "estimated effort must be positive")
	case errors.Is(err, entities.ErrDeveloperExists):
		writeError(w, http.StatusConflict, "DEVELOPER_EXISTS", "developer already exists")
	case errors.Is(err, entities.ErrTaskExists):
		writeError(w, http.StatusConflict, "TASK_EXISTS", "task already exists")
	case errors.Is(err, entities.ErrDeveloperNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "developer not found")
	case errors.Is(err, entities.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "task not found")
	case errors.Is(err, entities.ErrSprintNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "sprint not found")
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}
