// Package api serves route analyses over HTTP, one relation per request.
package api

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/paulmach/osm"
	"github.com/rs/zerolog/log"

	"train-route-analyzer/internal/analysis"
	"train-route-analyzer/internal/db"
	"train-route-analyzer/internal/kinematics"
	"train-route-analyzer/internal/publisher"
	"train-route-analyzer/internal/runner"
)

type Analyzer interface {
	Analyze(ctx context.Context, job runner.Job) runner.Outcome
}

type DetailsStore interface {
	Get(ctx context.Context, id int64) (db.Details, error)
}

// RouteResponse adds the chart and map data to the published summary.
type RouteResponse struct {
	publisher.RouteMessage
	Source     string           `json:"source,omitempty"`
	Trajectory []TrajectoryPoint `json:"trajectory"`
	Profile    []ProfileStep    `json:"profile"`
	Path       [][2]float64     `json:"path"`
	Bounds     [4]float64       `json:"bounds"`
}

type TrajectoryPoint struct {
	Distance float64 `json:"distanceKm"`
	Speed    float64 `json:"speedKmh"`
}

type ProfileStep struct {
	Length float64 `json:"lengthKm"`
	Limit  float64 `json:"limitKmh"`
	Exact  bool    `json:"exact"`
}

func NewRouteResponse(out runner.Outcome, now time.Time) RouteResponse {
	res := out.Result
	resp := RouteResponse{
		RouteMessage: publisher.NewRouteMessage(res, now),
		Source:       string(out.Source),
		Trajectory:   make([]TrajectoryPoint, 0, len(res.Trajectory)),
		Profile:      make([]ProfileStep, 0, len(res.Profile)),
		Path:         make([][2]float64, 0, len(res.Path)),
	}
	for _, p := range res.Trajectory {
		resp.Trajectory = append(resp.Trajectory, TrajectoryPoint{Distance: p.Distance, Speed: p.Speed})
	}
	for _, s := range res.Profile {
		resp.Profile = append(resp.Profile, ProfileStep{Length: s.Length, Limit: s.Limit, Exact: s.Exact})
	}
	for _, p := range res.Path {
		resp.Path = append(resp.Path, [2]float64{p.Lon(), p.Lat()})
	}
	if len(res.Path) > 0 {
		resp.Bounds = [4]float64{res.Bounds.Min.Lon(), res.Bounds.Min.Lat(), res.Bounds.Max.Lon(), res.Bounds.Max.Lat()}
	}
	return resp
}

// NewApp builds the HTTP app. store may be nil.
func NewApp(an Analyzer, store DetailsStore, catalog *kinematics.Catalog, defaultTrain string) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/trains", func(c *fiber.Ctx) error {
		return c.JSON(catalog.All())
	})

	RegisterRoutes(app.Group("/routes"), an, store, defaultTrain)
	return app
}

func RegisterRoutes(r fiber.Router, an Analyzer, store DetailsStore, defaultTrain string) {
	r.Get("/:id", func(c *fiber.Ctx) error {
		id, err := relationID(c)
		if err != nil {
			return err
		}
		train := c.Query("train", defaultTrain)
		out := an.Analyze(c.UserContext(), runner.Job{ID: id, Train: train, Refresh: c.Query("rf") == "1"})

		status := fiber.StatusOK
		switch {
		case out.Err != nil && errors.Is(out.Err, context.Canceled):
			return fiber.NewError(fiber.StatusServiceUnavailable, out.Err.Error())
		case out.Err != nil:
			status = fiber.StatusBadGateway
		case out.Result.Status == analysis.Failure:
			status = fiber.StatusUnprocessableEntity
		}
		return c.Status(status).JSON(NewRouteResponse(out, time.Now()))
	})

	r.Get("/:id/details", func(c *fiber.Ctx) error {
		if store == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "no database configured")
		}
		id, err := relationID(c)
		if err != nil {
			return err
		}
		d, err := store.Get(c.UserContext(), int64(id))
		if errors.Is(err, db.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "route not analyzed yet")
		}
		if err != nil {
			log.Error().Err(err).Int64("relation", int64(id)).Msg("load route details")
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(d)
	})
}

func relationID(c *fiber.Ctx) (osm.RelationID, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid relation id")
	}
	return osm.RelationID(id), nil
}
