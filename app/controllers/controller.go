package controllers

import (
	"github.com/bantaydalan/bantaydalan-api/app/models"
	"github.com/bantaydalan/bantaydalan-api/app/repository"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/audit"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/hcaptcha"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/lifecycle"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/security"
	"github.com/bantaydalan/bantaydalan-api/internal/pkg/statistics"
)

// Deps are the services the HTTP handlers call into.
type Deps struct {
	Repos    *repository.Repositories
	Gate     *lifecycle.Gate
	Intake   *lifecycle.Intake
	Audit    *audit.Recorder
	Stats    *statistics.Service
	Issuer   *security.TokenIssuer
	Captcha  *hcaptcha.Verifier
	Settings func() *models.AppSettings
}

// Controller holds the handlers of the JSON API
type Controller struct {
	Deps
}

func New(d Deps) *Controller {
	if d.Settings == nil {
		d.Settings = models.GetAppSettings
	}
	return &Controller{Deps: d}
}
