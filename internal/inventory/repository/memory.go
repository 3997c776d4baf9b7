package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/tair/taghub/internal/inventory/domain"
)

var errReadOnly = errors.New("write attempted in read-only transaction")

type usageKey struct {
	hubID string
	day   string
}

type memoryState struct {
	tags        map[string]domain.Tag
	hubs        map[string]domain.Hub
	usage       map[usageKey]int
	transfers   map[string]domain.Transfer
	quarantines map[string]domain.QuarantinedLot
	movements   []domain.MovementLogEntry
	events      []domain.Event
	incidents   []domain.Incident
}

// MemoryStore is an in-process Store. Write transactions are serialised under
// a mutex and stage their changes; the staged changes replace the committed
// state only when the transaction function returns nil.
type MemoryStore struct {
	mu    sync.RWMutex
	state memoryState
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: memoryState{
			tags:        make(map[string]domain.Tag),
			hubs:        make(map[string]domain.Hub),
			usage:       make(map[usageKey]int),
			transfers:   make(map[string]domain.Transfer),
			quarantines: make(map[string]domain.QuarantinedLot),
		},
	}
}

// Update runs fn in a write transaction.
func (s *MemoryStore) Update(ctx context.Context, fn func(tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newMemoryTx(&s.state, false)
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// View runs fn in a read transaction.
func (s *MemoryStore) View(ctx context.Context, fn func(tx domain.ReadTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return fn(newMemoryTx(&s.state, true))
}

// memoryTx overlays staged writes on the committed state. A nil quarantine
// entry marks a staged delete.
type memoryTx struct {
	base     *memoryState
	readOnly bool

	tags        map[string]domain.Tag
	hubs        map[string]domain.Hub
	usage       map[usageKey]int
	transfers   map[string]domain.Transfer
	quarantines map[string]*domain.QuarantinedLot
	movements   []domain.MovementLogEntry
	events      []domain.Event
	incidents   []domain.Incident
}

func newMemoryTx(base *memoryState, readOnly bool) *memoryTx {
	return &memoryTx{
		base:        base,
		readOnly:    readOnly,
		tags:        make(map[string]domain.Tag),
		hubs:        make(map[string]domain.Hub),
		usage:       make(map[usageKey]int),
		transfers:   make(map[string]domain.Transfer),
		quarantines: make(map[string]*domain.QuarantinedLot),
	}
}

func (tx *memoryTx) commit() {
	for id, tag := range tx.tags {
		tx.base.tags[id] = tag
	}
	for id, hub := range tx.hubs {
		tx.base.hubs[id] = hub
	}
	for key, n := range tx.usage {
		tx.base.usage[key] += n
	}
	for id, transfer := range tx.transfers {
		tx.base.transfers[id] = transfer
	}
	for id, lot := range tx.quarantines {
		if lot == nil {
			delete(tx.base.quarantines, id)
			continue
		}
		tx.base.quarantines[id] = *lot
	}
	tx.base.movements = append(tx.base.movements, tx.movements...)
	tx.base.events = append(tx.base.events, tx.events...)
	tx.base.incidents = append(tx.base.incidents, tx.incidents...)
}

// Tags

func (tx *memoryTx) lookupTag(id string) (domain.Tag, bool) {
	if tag, ok := tx.tags[id]; ok {
		return tag, true
	}
	tag, ok := tx.base.tags[id]
	return tag, ok
}

func (tx *memoryTx) allTags() []domain.Tag {
	tags := make([]domain.Tag, 0, len(tx.base.tags)+len(tx.tags))
	for id, tag := range tx.base.tags {
		if _, staged := tx.tags[id]; staged {
			continue
		}
		tags = append(tags, tag)
	}
	for _, tag := range tx.tags {
		tags = append(tags, tag)
	}
	return tags
}

func (tx *memoryTx) GetTag(id string) (*domain.Tag, error) {
	tag, ok := tx.lookupTag(id)
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	clone := cloneTag(tag)
	return &clone, nil
}

func (tx *memoryTx) ListTags(filter domain.TagFilter) ([]domain.Tag, error) {
	var tags []domain.Tag
	for _, tag := range tx.allTags() {
		if filter.Matches(tag) {
			tags = append(tags, cloneTag(tag))
		}
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].ReceivedAt.Equal(tags[j].ReceivedAt) {
			return tags[i].ID < tags[j].ID
		}
		return tags[i].ReceivedAt.Before(tags[j].ReceivedAt)
	})
	if filter.Limit > 0 && len(tags) > filter.Limit {
		tags = tags[:filter.Limit]
	}
	return tags, nil
}

func (tx *memoryTx) CountTags(hubID string) (domain.StockCounts, error) {
	var counts domain.StockCounts
	for _, tag := range tx.allTags() {
		if tag.HubID != hubID {
			continue
		}
		quarantined := false
		if tag.Status == domain.TagStatusStock {
			quarantined = tx.lotQuarantined(tag.LotID)
		}
		counts.Add(tag.Status, quarantined)
	}
	return counts, nil
}

func (tx *memoryTx) PutTag(tag domain.Tag) error {
	if tx.readOnly {
		return errReadOnly
	}
	tx.tags[tag.ID] = cloneTag(tag)
	return nil
}

// Hubs and usage

func (tx *memoryTx) GetHub(id string) (*domain.Hub, error) {
	if hub, ok := tx.hubs[id]; ok {
		return &hub, nil
	}
	hub, ok := tx.base.hubs[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return &hub, nil
}

func (tx *memoryTx) ListHubs() ([]domain.Hub, error) {
	hubs := make([]domain.Hub, 0, len(tx.base.hubs)+len(tx.hubs))
	for id, hub := range tx.base.hubs {
		if _, staged := tx.hubs[id]; staged {
			continue
		}
		hubs = append(hubs, hub)
	}
	for _, hub := range tx.hubs {
		hubs = append(hubs, hub)
	}
	sort.Slice(hubs, func(i, j int) bool { return hubs[i].ID < hubs[j].ID })
	return hubs, nil
}

func (tx *memoryTx) PutHub(hub domain.Hub) error {
	if tx.readOnly {
		return errReadOnly
	}
	tx.hubs[hub.ID] = hub
	return nil
}

func (tx *memoryTx) UsageSince(hubID, fromDay string) (int, error) {
	total := 0
	for key, n := range tx.base.usage {
		if key.hubID == hubID && key.day >= fromDay {
			total += n
		}
	}
	for key, n := range tx.usage {
		if key.hubID == hubID && key.day >= fromDay {
			total += n
		}
	}
	return total, nil
}

func (tx *memoryTx) AddUsage(hubID, day string, applied int) error {
	if tx.readOnly {
		return errReadOnly
	}
	tx.usage[usageKey{hubID: hubID, day: day}] += applied
	return nil
}

// Transfers

func (tx *memoryTx) GetTransfer(id string) (*domain.Transfer, error) {
	transfer, ok := tx.transfers[id]
	if !ok {
		transfer, ok = tx.base.transfers[id]
	}
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	clone := cloneTransfer(transfer)
	return &clone, nil
}

func (tx *memoryTx) ListTransfers(filter domain.TransferFilter) ([]domain.Transfer, error) {
	var transfers []domain.Transfer
	for id, transfer := range tx.base.transfers {
		if _, staged := tx.transfers[id]; staged {
			continue
		}
		if filter.Matches(transfer) {
			transfers = append(transfers, cloneTransfer(transfer))
		}
	}
	for _, transfer := range tx.transfers {
		if filter.Matches(transfer) {
			transfers = append(transfers, cloneTransfer(transfer))
		}
	}
	sort.Slice(transfers, func(i, j int) bool {
		if transfers[i].InitiatedAt.Equal(transfers[j].InitiatedAt) {
			return transfers[i].ID < transfers[j].ID
		}
		return transfers[i].InitiatedAt.Before(transfers[j].InitiatedAt)
	})
	return transfers, nil
}

func (tx *memoryTx) PutTransfer(transfer domain.Transfer) error {
	if tx.readOnly {
		return errReadOnly
	}
	tx.transfers[transfer.ID] = cloneTransfer(transfer)
	return nil
}

// Quarantine

func (tx *memoryTx) lotQuarantined(lotID string) bool {
	if lot, staged := tx.quarantines[lotID]; staged {
		return lot != nil
	}
	_, ok := tx.base.quarantines[lotID]
	return ok
}

func (tx *memoryTx) GetQuarantine(lotID string) (*domain.QuarantinedLot, error) {
	if lot, staged := tx.quarantines[lotID]; staged {
		if lot == nil {
			return nil, domain.ErrRecordNotFound
		}
		clone := *lot
		return &clone, nil
	}
	lot, ok := tx.base.quarantines[lotID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return &lot, nil
}

func (tx *memoryTx) ListQuarantinedLots() ([]domain.QuarantinedLot, error) {
	var lots []domain.QuarantinedLot
	for id, lot := range tx.base.quarantines {
		if _, staged := tx.quarantines[id]; staged {
			continue
		}
		lots = append(lots, lot)
	}
	for _, lot := range tx.quarantines {
		if lot != nil {
			lots = append(lots, *lot)
		}
	}
	sort.Slice(lots, func(i, j int) bool { return lots[i].LotID < lots[j].LotID })
	return lots, nil
}

func (tx *memoryTx) PutQuarantine(lot domain.QuarantinedLot) error {
	if tx.readOnly {
		return errReadOnly
	}
	tx.quarantines[lot.LotID] = &lot
	return nil
}

func (tx *memoryTx) DeleteQuarantine(lotID string) error {
	if tx.readOnly {
		return errReadOnly
	}
	tx.quarantines[lotID] = nil
	return nil
}

// Logs

func (tx *memoryTx) ListMovements(filter domain.MovementFilter) ([]domain.MovementLogEntry, error) {
	var entries []domain.MovementLogEntry
	for _, entry := range append(tx.base.movements[:len(tx.base.movements):len(tx.base.movements)], tx.movements...) {
		if filter.Matches(entry) {
			entries = append(entries, entry)
		}
	}
	return latest(entries, filter.Limit), nil
}

func (tx *memoryTx) ListEvents(filter domain.EventFilter) ([]domain.Event, error) {
	var events []domain.Event
	for _, event := range append(tx.base.events[:len(tx.base.events):len(tx.base.events)], tx.events...) {
		if filter.Matches(event) {
			events = append(events, cloneEvent(event))
		}
	}
	return latest(events, filter.Limit), nil
}

func (tx *memoryTx) ListIncidents() ([]domain.Incident, error) {
	incidents := make([]domain.Incident, 0, len(tx.base.incidents)+len(tx.incidents))
	incidents = append(incidents, tx.base.incidents...)
	incidents = append(incidents, tx.incidents...)
	return incidents, nil
}

func (tx *memoryTx) AppendMovements(entries ...domain.MovementLogEntry) error {
	if tx.readOnly {
		return errReadOnly
	}
	tx.movements = append(tx.movements, entries...)
	return nil
}

func (tx *memoryTx) AppendEvent(event domain.Event) error {
	if tx.readOnly {
		return errReadOnly
	}
	tx.events = append(tx.events, cloneEvent(event))
	return nil
}

func (tx *memoryTx) AppendIncident(incident domain.Incident) error {
	if tx.readOnly {
		return errReadOnly
	}
	tx.incidents = append(tx.incidents, incident)
	return nil
}

// latest keeps the last n items of an append-ordered log.
func latest[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[len(items)-n:]
	}
	return items
}

func cloneTag(t domain.Tag) domain.Tag {
	if t.ReservedForShipmentID != nil {
		shipment := *t.ReservedForShipmentID
		t.ReservedForShipmentID = &shipment
	}
	if t.ExpiresAt != nil {
		expires := *t.ExpiresAt
		t.ExpiresAt = &expires
	}
	return t
}

func cloneTransfer(t domain.Transfer) domain.Transfer {
	t.TagIDs = append([]string(nil), t.TagIDs...)
	if t.ArrivedAt != nil {
		arrived := *t.ArrivedAt
		t.ArrivedAt = &arrived
	}
	if t.ResolvedAt != nil {
		resolved := *t.ResolvedAt
		t.ResolvedAt = &resolved
	}
	return t
}

func cloneEvent(e domain.Event) domain.Event {
	e.TagIDs = append([]string(nil), e.TagIDs...)
	e.Payload = append([]byte(nil), e.Payload...)
	return e
}
