package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tair/taghub/internal/inventory/domain"
)

// GormStore persists inventory state in PostgreSQL. Rows read inside Update
// are locked with SELECT ... FOR UPDATE until the transaction ends.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new gorm backed store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate creates or updates the inventory tables
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(
		&domain.Hub{},
		&domain.HubUsage{},
		&domain.Tag{},
		&domain.Transfer{},
		&domain.QuarantinedLot{},
		&domain.MovementLogEntry{},
		&domain.Event{},
		&domain.Incident{},
	)
}

// Update runs fn inside a database transaction.
func (s *GormStore) Update(ctx context.Context, fn func(tx domain.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&gormTx{db: db, lock: true})
	})
}

// View runs fn inside a read-only database transaction.
func (s *GormStore) View(ctx context.Context, fn func(tx domain.ReadTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&gormTx{db: db})
	}, &sql.TxOptions{ReadOnly: true, Isolation: sql.LevelRepeatableRead})
}

type gormTx struct {
	db   *gorm.DB
	lock bool
}

func (tx *gormTx) query() *gorm.DB {
	if tx.lock {
		return tx.db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx.db
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrRecordNotFound
	}
	return err
}

// Tags

func (tx *gormTx) GetTag(id string) (*domain.Tag, error) {
	var tag domain.Tag
	if err := tx.query().Where("id = ?", id).First(&tag).Error; err != nil {
		return nil, notFound(err)
	}
	return &tag, nil
}

func (tx *gormTx) ListTags(filter domain.TagFilter) ([]domain.Tag, error) {
	q := tx.query().Model(&domain.Tag{})
	if filter.HubID != "" {
		q = q.Where("hub_id = ?", filter.HubID)
	}
	if filter.LotID != "" {
		q = q.Where("lot_id = ?", filter.LotID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if len(filter.IDs) > 0 {
		q = q.Where("id IN ?", filter.IDs)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var tags []domain.Tag
	err := q.Order("received_at ASC, id ASC").Find(&tags).Error
	return tags, err
}

type statusCount struct {
	Status      domain.TagStatus
	Quarantined bool
	Count       int
}

func (tx *gormTx) CountTags(hubID string) (domain.StockCounts, error) {
	var rows []statusCount
	err := tx.db.Model(&domain.Tag{}).
		Select("status, (lot_id IN (SELECT lot_id FROM quarantined_lots)) AS quarantined, COUNT(*) AS count").
		Where("hub_id = ?", hubID).
		Group("status, quarantined").
		Scan(&rows).Error
	if err != nil {
		return domain.StockCounts{}, err
	}

	var counts domain.StockCounts
	for _, row := range rows {
		for i := 0; i < row.Count; i++ {
			counts.Add(row.Status, row.Quarantined)
		}
	}
	return counts, nil
}

func (tx *gormTx) PutTag(tag domain.Tag) error {
	return tx.db.Save(&tag).Error
}

// Hubs and usage

func (tx *gormTx) GetHub(id string) (*domain.Hub, error) {
	var hub domain.Hub
	if err := tx.query().Where("id = ?", id).First(&hub).Error; err != nil {
		return nil, notFound(err)
	}
	return &hub, nil
}

func (tx *gormTx) ListHubs() ([]domain.Hub, error) {
	var hubs []domain.Hub
	err := tx.db.Order("id ASC").Find(&hubs).Error
	return hubs, err
}

func (tx *gormTx) PutHub(hub domain.Hub) error {
	return tx.db.Save(&hub).Error
}

func (tx *gormTx) UsageSince(hubID, fromDay string) (int, error) {
	var total int
	err := tx.db.Model(&domain.HubUsage{}).
		Select("COALESCE(SUM(applied), 0)").
		Where("hub_id = ? AND day >= ?", hubID, fromDay).
		Scan(&total).Error
	return total, err
}

func (tx *gormTx) AddUsage(hubID, day string, applied int) error {
	usage := domain.HubUsage{HubID: hubID, Day: day, Applied: applied}
	return tx.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hub_id"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"applied": gorm.Expr("hub_usages.applied + ?", applied)}),
	}).Create(&usage).Error
}

// Transfers

func (tx *gormTx) GetTransfer(id string) (*domain.Transfer, error) {
	var transfer domain.Transfer
	if err := tx.query().Where("id = ?", id).First(&transfer).Error; err != nil {
		return nil, notFound(err)
	}
	return &transfer, nil
}

func (tx *gormTx) ListTransfers(filter domain.TransferFilter) ([]domain.Transfer, error) {
	q := tx.db.Model(&domain.Transfer{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.HubID != "" {
		q = q.Where("from_hub_id = ? OR to_hub_id = ?", filter.HubID, filter.HubID)
	}

	var transfers []domain.Transfer
	err := q.Order("initiated_at ASC, id ASC").Find(&transfers).Error
	return transfers, err
}

func (tx *gormTx) PutTransfer(transfer domain.Transfer) error {
	return tx.db.Save(&transfer).Error
}

// Quarantine

func (tx *gormTx) GetQuarantine(lotID string) (*domain.QuarantinedLot, error) {
	var lot domain.QuarantinedLot
	if err := tx.query().Where("lot_id = ?", lotID).First(&lot).Error; err != nil {
		return nil, notFound(err)
	}
	return &lot, nil
}

func (tx *gormTx) ListQuarantinedLots() ([]domain.QuarantinedLot, error) {
	var lots []domain.QuarantinedLot
	err := tx.db.Order("lot_id ASC").Find(&lots).Error
	return lots, err
}

func (tx *gormTx) PutQuarantine(lot domain.QuarantinedLot) error {
	return tx.db.Save(&lot).Error
}

func (tx *gormTx) DeleteQuarantine(lotID string) error {
	return tx.db.Where("lot_id = ?", lotID).Delete(&domain.QuarantinedLot{}).Error
}

// Logs. Limit keeps the most recent entries, returned oldest first.

func (tx *gormTx) ListMovements(filter domain.MovementFilter) ([]domain.MovementLogEntry, error) {
	q := tx.db.Model(&domain.MovementLogEntry{})
	if filter.TagID != "" {
		q = q.Where("tag_id = ?", filter.TagID)
	}
	if filter.HubID != "" {
		q = q.Where("hub_id = ?", filter.HubID)
	}

	var entries []domain.MovementLogEntry
	if err := newestFirst(q, filter.Limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	reverse(entries)
	return entries, nil
}

func (tx *gormTx) ListEvents(filter domain.EventFilter) ([]domain.Event, error) {
	q := tx.db.Model(&domain.Event{})
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.TagID != "" {
		q = q.Where("? = ANY(tag_ids)", filter.TagID)
	}
	if filter.HubID != "" {
		q = q.Where("hub_id = ?", filter.HubID)
	}
	if filter.TransferID != "" {
		q = q.Where("transfer_id = ?", filter.TransferID)
	}
	if filter.LotID != "" {
		q = q.Where("lot_id = ?", filter.LotID)
	}
	if !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since)
	}

	var events []domain.Event
	if err := newestFirst(q, filter.Limit).Find(&events).Error; err != nil {
		return nil, err
	}
	reverse(events)
	return events, nil
}

func (tx *gormTx) ListIncidents() ([]domain.Incident, error) {
	var incidents []domain.Incident
	err := tx.db.Order("created_at ASC, id ASC").Find(&incidents).Error
	return incidents, err
}

func (tx *gormTx) AppendMovements(entries ...domain.MovementLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := tx.db.CreateInBatches(entries, 500).Error; err != nil {
		return fmt.Errorf("failed to append movements: %w", err)
	}
	return nil
}

func (tx *gormTx) AppendEvent(event domain.Event) error {
	return tx.db.Create(&event).Error
}

func (tx *gormTx) AppendIncident(incident domain.Incident) error {
	return tx.db.Create(&incident).Error
}

func newestFirst(q *gorm.DB, limit int) *gorm.DB {
	q = q.Order("timestamp DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return q
}

func reverse[T any](items []T) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}
