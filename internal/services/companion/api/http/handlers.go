package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	apperrors "github.com/louisbranch/regenmon/internal/platform/errors"
	"github.com/louisbranch/regenmon/internal/services/companion/app"
	"github.com/louisbranch/regenmon/internal/services/companion/domain"
)

// Service defines the companion operations consumed by this API.
type Service interface {
	StoreUser(ctx context.Context, name string) (domain.User, error)
	GetUser(ctx context.Context) (domain.User, error)
	MarkTutorialSeen(ctx context.Context, tutorialID string) error
	Hatch(ctx context.Context, name, archetypeID string) (string, error)
	Get(ctx context.Context) (*app.CompanionView, error)
	ApplyAction(ctx context.Context, companionID string, actionType domain.ActionType) (app.ActionResult, error)
	Chat(ctx context.Context, companionID, message string, rewardEligible bool) (int, error)
	ClaimDailyReward(ctx context.Context, companionID string) (int, error)
	Update(ctx context.Context, companionID string, patch app.UpdatePatch, history []app.HistoryEntry) error
	Reset(ctx context.Context, companionID string) error
}

type handler struct {
	service Service
}

// errorBody is the JSON failure envelope.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	message := "an unexpected error occurred"
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	writeJSON(w, code.HTTPStatus(), errorBody{Code: string(code), Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(r *http.Request, target any) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return apperrors.Wrap(apperrors.CodeValidation, "malformed request body", err)
	}
	return nil
}

// userResponse mirrors the stored profile.
type userResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	TutorialsSeen []string `json:"tutorialsSeen"`
}

func toUserResponse(u domain.User) userResponse {
	tutorials := u.TutorialsSeen
	if tutorials == nil {
		tutorials = []string{}
	}
	return userResponse{ID: u.ID, Name: u.Name, TutorialsSeen: tutorials}
}

func (h *handler) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, err := h.service.StoreUser(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *handler) handleUsersMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	user, err := h.service.GetUser(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *handler) handleTutorials(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req struct {
		TutorialID string `json:"tutorialId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.MarkTutorialSeen(r.Context(), req.TutorialID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// statsPayload carries the three gauges in requests and responses.
type statsPayload struct {
	Happiness int `json:"happiness"`
	Energy    int `json:"energy"`
	Hunger    int `json:"hunger"`
}

// historyItem is the merged history form the legacy client expects: the
// reconciled origin id when present, otherwise the log entry id.
type historyItem struct {
	ID     string    `json:"id"`
	Type   string    `json:"type"`
	Amount int       `json:"amount"`
	Date   time.Time `json:"date"`
}

// companionResponse merges stored state with the derived clock values.
type companionResponse struct {
	ID                  string        `json:"id"`
	Name                string        `json:"name"`
	ArchetypeID         string        `json:"archetypeId"`
	Stats               statsPayload  `json:"stats"`
	Coins               int           `json:"coins"`
	CreatedAt           time.Time     `json:"createdAt"`
	DailyRewardsClaimed int           `json:"dailyRewardsClaimed"`
	LastDailyReward     *time.Time    `json:"lastDailyReward,omitempty"`
	EvolutionBonus      int           `json:"evolutionBonus,omitempty"`
	IsGameOver          bool          `json:"isGameOver,omitempty"`
	GameOverAt          *time.Time    `json:"gameOverAt,omitempty"`
	Stage               string        `json:"stage"`
	StageIndex          int           `json:"stageIndex"`
	TimeRemainingMs     int64         `json:"timeRemainingMs"`
	Mood                string        `json:"mood"`
	History             []historyItem `json:"history"`
}

func toCompanionResponse(view *app.CompanionView) companionResponse {
	c := view.Companion
	history := make([]historyItem, 0, len(view.History))
	for _, action := range view.History {
		id := action.OriginID()
		if id == "" {
			id = action.ID
		}
		history = append(history, historyItem{
			ID:     id,
			Type:   string(action.Type),
			Amount: action.Amount(),
			Date:   action.Timestamp,
		})
	}

	resp := companionResponse{
		ID:                  c.ID,
		Name:                c.Name,
		ArchetypeID:         c.ArchetypeID,
		Stats:               statsPayload(c.Stats),
		Coins:               c.Coins,
		CreatedAt:           c.CreatedAt,
		DailyRewardsClaimed: c.DailyRewardsClaimed,
		EvolutionBonus:      c.EvolutionBonus,
		IsGameOver:          c.IsGameOver,
		GameOverAt:          c.GameOverAt,
		Stage:               string(view.Evolution.Stage),
		StageIndex:          view.Evolution.StageIndex,
		TimeRemainingMs:     view.Evolution.TimeRemaining.Milliseconds(),
		Mood:                string(view.Mood),
		History:             history,
	}
	if !c.LastDailyReward.IsZero() {
		last := c.LastDailyReward
		resp.LastDailyReward = &last
	}
	return resp
}

func (h *handler) handleCompanion(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleHatch(w, r)
	case http.MethodGet:
		h.handleGet(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *handler) handleHatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		ArchetypeID string `json:"archetypeId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	companionID, err := h.service.Hatch(r.Context(), req.Name, req.ArchetypeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"companionId": companionID})
}

func (h *handler) handleGet(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Get(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if view == nil {
		// The legacy client expects a literal null when nothing is hatched.
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, toCompanionResponse(view))
}

func (h *handler) handleCompanionByID(w http.ResponseWriter, r *http.Request, companionID string) {
	switch r.Method {
	case http.MethodPatch:
		h.handleUpdate(w, r, companionID)
	case http.MethodDelete:
		h.handleReset(w, r, companionID)
	default:
		http.NotFound(w, r)
	}
}

func (h *handler) handleApplyAction(w http.ResponseWriter, r *http.Request, companionID string) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req struct {
		ActionType string `json:"actionType"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.service.ApplyAction(r.Context(), companionID, domain.ActionType(req.ActionType))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		NewStats statsPayload `json:"newStats"`
		NewCoins int          `json:"newCoins"`
	}{NewStats: statsPayload(result.Stats), NewCoins: result.Coins})
}

func (h *handler) handleChat(w http.ResponseWriter, r *http.Request, companionID string) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req struct {
		Message        string `json:"message"`
		RewardEligible bool   `json:"rewardEligible"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	award, err := h.service.Chat(r.Context(), companionID, req.Message, req.RewardEligible)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"coinAward": award})
}

func (h *handler) handleDailyReward(w http.ResponseWriter, r *http.Request, companionID string) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	coins, err := h.service.ClaimDailyReward(r.Context(), companionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"newCoins": coins})
}

// updateRequest mirrors the legacy whole-object payload.
type updateRequest struct {
	Name           *string       `json:"name"`
	ArchetypeID    *string       `json:"archetypeId"`
	Stats          *statsPayload `json:"stats"`
	Coins          *int          `json:"coins"`
	EvolutionBonus *int          `json:"evolutionBonus"`
	IsGameOver     *bool         `json:"isGameOver"`
	GameOverAt     *time.Time    `json:"gameOverAt"`
	History        []struct {
		ID     string    `json:"id"`
		Type   string    `json:"type"`
		Amount int       `json:"amount"`
		Date   time.Time `json:"date"`
	} `json:"history"`
}

func (h *handler) handleUpdate(w http.ResponseWriter, r *http.Request, companionID string) {
	var req updateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	patch := app.UpdatePatch{
		Name:           req.Name,
		ArchetypeID:    req.ArchetypeID,
		Coins:          req.Coins,
		EvolutionBonus: req.EvolutionBonus,
		IsGameOver:     req.IsGameOver,
		GameOverAt:     req.GameOverAt,
	}
	if req.Stats != nil {
		stats := domain.Stats(*req.Stats)
		patch.Stats = &stats
	}
	history := make([]app.HistoryEntry, 0, len(req.History))
	for _, entry := range req.History {
		history = append(history, app.HistoryEntry{
			ID:     entry.ID,
			Type:   domain.ActionType(entry.Type),
			Amount: entry.Amount,
			Date:   entry.Date,
		})
	}

	if err := h.service.Update(r.Context(), companionID, patch, history); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleReset(w http.ResponseWriter, r *http.Request, companionID string) {
	if err := h.service.Reset(r.Context(), companionID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
