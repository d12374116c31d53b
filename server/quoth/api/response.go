package api

import (
	"github.com/keeeal/quoth/server/common/transport/httpresp"
)

const (
	ErrUnauthorized       = httpresp.ErrUnauthorized
	ErrInvalidCredentials = httpresp.ErrInvalidCredentials
	ErrGuildIDInvalid     = httpresp.ErrGuildIDInvalid
)

type ErrorResponse = httpresp.ErrorResponse
type OKResponse = httpresp.OKResponse
type CountResponse = httpresp.CountResponse
type TokenResponse = httpresp.TokenResponse

type HealthResponse struct {
	Status string `json:"status"`
}

func NewErrorResponse(message string) ErrorResponse {
	return httpresp.NewErrorResponse(message)
}

func NewOKResponse() OKResponse {
	return httpresp.NewOKResponse()
}

func NewCountResponse(count int64) CountResponse {
	return httpresp.NewCountResponse(count)
}

func NewTokenResponse(accessToken, role string) TokenResponse {
	return httpresp.NewTokenResponse(accessToken, role)
}

func NewHealthResponse(status string) HealthResponse {
	return HealthResponse{Status: status}
}
