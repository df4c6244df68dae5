package handlers

import (
	"github.com/gin-gonic/gin"
)

type IndexResponse struct {
	Message   string            `json:"message"`
	Endpoints map[string]string `json:"endpoints"`
}

type ReuploadResponse struct {
	Reupload bool   `json:"reupload"`
	Message  string `json:"message"`
}

type ResultResponse struct {
	ClassID int    `json:"class_id"`
	Label   string `json:"label"`
}

type ErrorBody struct {
	Error string `json:"error"`
}

type HealthStatus struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

func respondError(c *gin.Context, status int, code, message string) {
	c.Set("error_code", code)
	c.JSON(status, ErrorBody{Error: message})
}
