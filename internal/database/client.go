// Package database loads long-format observations and site metadata from
// the acquisition store. The conditioning core never imports this package;
// it consumes the already-parsed record set this adapter produces.
package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/streamside/hydrocond/internal/log"
	"github.com/streamside/hydrocond/internal/types"
	"go.uber.org/zap"
)

// Client holds the connection to the observation store
type Client struct {
	dsn    string
	DB     *gorm.DB
	logger *zap.SugaredLogger
}

// observationRow mirrors the acquisition schema's observations table.
type observationRow struct {
	Region      string    `gorm:"column:region"`
	Site        string    `gorm:"column:site"`
	DateTimeUTC time.Time `gorm:"column:datetime_utc"`
	Variable    string    `gorm:"column:variable"`
	Value       *float64  `gorm:"column:value"`
	FlagType    *string   `gorm:"column:flagtype"`
	FlagComment *string   `gorm:"column:flagcomment"`
}

func (observationRow) TableName() string { return "observations" }

// siteRow mirrors the sites metadata table.
type siteRow struct {
	Region string  `gorm:"column:region"`
	Site   string  `gorm:"column:site"`
	Lat    float64 `gorm:"column:lat"`
	Lon    float64 `gorm:"column:lon"`
}

func (siteRow) TableName() string { return "sites" }

// NewClient creates a new observation store client
func NewClient(dsn string, logger *zap.SugaredLogger) *Client {
	return &Client{dsn: dsn, logger: logger}
}

// Connect connects to the observation store
func (c *Client) Connect() error {
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Warn,
		},
	)

	var err error
	log.Info("connecting to observation store...")
	c.DB, err = gorm.Open(postgres.Open(c.dsn), &gorm.Config{Logger: dbLogger})
	if err != nil {
		log.Warn("warning: unable to connect to observation store:", err)
		return err
	}
	log.Info("observation store connection successful")
	return nil
}

// GetSite fetches metadata for one site.
func (c *Client) GetSite(ctx context.Context, region, site string) (types.Site, error) {
	var row siteRow
	err := c.DB.WithContext(ctx).
		Where("region = ? AND site = ?", region, site).
		First(&row).Error
	if err != nil {
		return types.Site{}, fmt.Errorf("loading site %s_%s: %w", region, site, err)
	}
	return types.Site{Region: row.Region, Site: row.Site, Lat: row.Lat, Lon: row.Lon}, nil
}

// GetObservations fetches a site's long-format records over a time span,
// ordered by variable then timestamp.
func (c *Client) GetObservations(ctx context.Context, region, site string, start, end time.Time) ([]types.Observation, error) {
	var rows []observationRow
	err := c.DB.WithContext(ctx).
		Where("region = ? AND site = ? AND datetime_utc >= ? AND datetime_utc <= ?",
			region, site, start.UTC(), end.UTC()).
		Order("variable, datetime_utc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading observations for %s_%s: %w", region, site, err)
	}

	obs := make([]types.Observation, 0, len(rows))
	for _, r := range rows {
		o := types.Observation{
			Region:   r.Region,
			Site:     r.Site,
			Time:     r.DateTimeUTC.UTC(),
			Variable: r.Variable,
			Value:    types.Missing(),
		}
		if r.Value != nil {
			o.Value = *r.Value
		}
		if r.FlagType != nil {
			flag, err := types.ParseFlag(*r.FlagType)
			if err != nil {
				log.Warnf("skipping unknown flag on %s at %s: %v", r.Variable, r.DateTimeUTC, err)
			} else {
				o.Flag = flag
			}
		}
		if r.FlagComment != nil {
			o.Comment = *r.FlagComment
		}
		obs = append(obs, o)
	}
	log.Debugf("loaded %d observations for %s_%s", len(obs), region, site)
	return obs, nil
}
