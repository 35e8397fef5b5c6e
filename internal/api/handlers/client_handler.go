package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/matchfit/matchfit/internal/models"
	"github.com/matchfit/matchfit/internal/services"
	"github.com/matchfit/matchfit/internal/utils"
)

type ClientHandler struct {
	svc services.IntakeService
}

func NewClientHandler(svc services.IntakeService) *ClientHandler {
	return &ClientHandler{svc: svc}
}

type SubmitIntakeRequest struct {
	ID                 string   `json:"id,omitempty"`
	TrainingExperience string   `json:"training_experience"`
	Goals              []string `json:"goals"`
	SessionsPerWeek    string   `json:"sessions_per_week"`
	ChronicDiseases    []string `json:"chronic_diseases"`
	Injuries           []string `json:"injuries"`
	WeightGoal         string   `json:"weight_goal"`

	Demographics *json.RawMessage `json:"demographics,omitempty"`
}

func (h *ClientHandler) Submit(c *gin.Context) {
	var req SubmitIntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "ClientHandler.Submit", "invalid request body", err))
		return
	}

	p := &models.ClientProfile{
		ID:                 req.ID,
		TrainingExperience: req.TrainingExperience,
		Goals:              req.Goals,
		SessionsPerWeek:    req.SessionsPerWeek,
		ChronicDiseases:    req.ChronicDiseases,
		Injuries:           req.Injuries,
		WeightGoal:         req.WeightGoal,
	}
	if req.Demographics != nil {
		p.Demographics = datatypes.JSON(*req.Demographics)
	}

	saved, err := h.svc.Submit(c.Request.Context(), p)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, saved)
}

func (h *ClientHandler) Get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("client_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}
