package audit

import "time"

// Action enumerates mutations recorded in the activity log.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// EntityType enumerates the entities the activity log refers to.
type EntityType string

const (
	EntityProduct  EntityType = "product"
	EntityCategory EntityType = "category"
	EntitySupplier EntityType = "supplier"
	EntityBrand    EntityType = "brand"

	EntityLabelTemplate EntityType = "label_template"
)

// ActivityEntry mewakili satu baris activity_log.
type ActivityEntry struct {
	ID         int64      `json:"id"`
	Action     Action     `json:"action"`
	EntityType EntityType `json:"entityType"`
	EntityID   int64      `json:"entityId"`
	Details    *string    `json:"details,omitempty"`
	At         time.Time  `json:"timestamp"`
}

// HistoryEntry mewakili satu baris product_history.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"productId"`
	Action    Action    `json:"action"`
	Details   string    `json:"details"`
	At        time.Time `json:"timestamp"`
}

// TimelineFilters menampung filter dasar untuk activity timeline.
type TimelineFilters struct {
	From       time.Time
	To         time.Time
	EntityType EntityType
	Action     Action
	Page       int
	PageSize   int
}

// TimelineQuery is the resolved window passed to the repository.
type TimelineQuery struct {
	From       time.Time
	To         time.Time
	EntityType EntityType
	Action     Action
	Offset     int
	Limit      int
}

// PagingInfo menyimpan metadata pagination sederhana.
type PagingInfo struct {
	Page     int  `json:"page"`
	HasNext  bool `json:"hasNext"`
	PageSize int  `json:"pageSize"`
	PrevPage int  `json:"prevPage,omitempty"`
	NextPage int  `json:"nextPage,omitempty"`
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Valid reports whether e is a known entity type.
func (e EntityType) Valid() bool {
	switch e {
	case EntityProduct, EntityCategory, EntitySupplier, EntityBrand, EntityLabelTemplate:
		return true
	}
	return false
}
