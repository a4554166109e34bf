package main

import (
	"context"
	"fmt"
	"time"

	"DopamineBreaker/internal/model"
	"DopamineBreaker/internal/service"
	"DopamineBreaker/storage"
	"DopamineBreaker/storage/database"
)

type RefreshCmd struct {
	Timeout time.Duration `help:"Timeout for the whole run." default:"5m"`
}

func (c *RefreshCmd) Run() error {
	if err := storage.Init(); err != nil {
		return err
	}
	defer storage.Close()

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	outcome := service.Refresh().RefreshToday(ctx)
	fmt.Println(renderOutcome(outcome))
	if outcome.Status == service.OutcomeFailed {
		return fmt.Errorf("refresh failed: %s", outcome.Reason)
	}
	if outcome.Entry != nil {
		fmt.Println(renderMissions(outcome.Entry.Missions()))
	}
	return nil
}

type ShowCmd struct {
	Date string `help:"Day to show (YYYY-MM-DD), defaults to today."`
}

func (c *ShowCmd) Run() error {
	if err := database.Init(); err != nil {
		return err
	}
	defer storage.Close()

	svc := service.Catalog()
	date, err := resolveDate(c.Date)
	if err != nil {
		return err
	}

	missions, err := svc.DailyCatalog(context.Background(), model.DateKey(date, service.Location()))
	if err != nil {
		return err
	}
	fmt.Println(renderHeader("Catalog " + model.DateKey(date, service.Location())))
	fmt.Println(renderMissions(missions))
	return nil
}

type AvailableCmd struct {
	Date string `help:"Day to check (YYYY-MM-DD), defaults to today."`
}

func (c *AvailableCmd) Run() error {
	if err := database.Init(); err != nil {
		return err
	}
	defer storage.Close()

	svc := service.Catalog()
	date, err := resolveDate(c.Date)
	if err != nil {
		return err
	}

	missions, err := svc.AvailableMissions(context.Background(), date)
	if err != nil {
		return err
	}
	fmt.Println(renderHeader(fmt.Sprintf("Available %s (%d/%d)", model.DateKey(date, service.Location()), len(missions), model.SlotsPerDay)))
	fmt.Println(renderMissions(missions))
	return nil
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run() error {
	// Init 内部会执行 AutoMigrate
	if err := database.Init(); err != nil {
		return err
	}
	defer storage.Close()

	fmt.Println(successStyle.Render(fmt.Sprintf("migrated %d tables", len(database.Models()))))
	return nil
}

func resolveDate(value string) (time.Time, error) {
	loc := service.Location()
	if value == "" {
		return time.Now().In(loc), nil
	}
	day, err := model.ParseDateKey(value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return day, nil
}
