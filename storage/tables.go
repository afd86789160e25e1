package storage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"taskmanager/domain"
)

const (
	taskPartition = "tasks"
	edmDateTime   = "Edm.DateTime"
	edmTimeLayout = "2006-01-02T15:04:05.000Z"
)

type tableClient interface {
	AddEntity(ctx context.Context, entity []byte, options *aztables.AddEntityOptions) (aztables.AddEntityResponse, error)
	GetEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	UpdateEntity(ctx context.Context, entity []byte, options *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error)
	DeleteEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
	NewListEntitiesPager(listOptions *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
}

// TableStore persists tasks as entities in a single Azure Table partition.
type TableStore struct {
	table tableClient
	now   func() time.Time
}

// NewTableStore creates a TableStore from the given connection string.
func NewTableStore(connStr, table string) (*TableStore, error) {
	svc, err := NewTableServiceClient(connStr)
	if err != nil {
		return nil, err
	}
	return newTableStore(svc.NewClient(table)), nil
}

// NewTableServiceClient builds a table service client with the retry policy
// shared by the API and storage-init.
func NewTableServiceClient(connStr string) (*aztables.ServiceClient, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	return aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
}

func newTableStore(c tableClient) *TableStore {
	return &TableStore{
		table: c,
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

type entityKeys struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
}

// taskRecord is the write shape of a task entity.
type taskRecord struct {
	entityKeys
	Title         string `json:"Title"`
	Description   string `json:"Description"`
	Completed     bool   `json:"Completed"`
	CreatedAt     string `json:"CreatedAt"`
	CreatedAtType string `json:"CreatedAt@odata.type"`
	UpdatedAt     string `json:"UpdatedAt"`
	UpdatedAtType string `json:"UpdatedAt@odata.type"`
}

// taskRecordPatch carries a merge update for a task entity.
type taskRecordPatch struct {
	entityKeys
	Title         *string `json:"Title,omitempty"`
	Description   *string `json:"Description,omitempty"`
	Completed     *bool   `json:"Completed,omitempty"`
	UpdatedAt     string  `json:"UpdatedAt"`
	UpdatedAtType string  `json:"UpdatedAt@odata.type"`
}

// taskEntity is the read shape returned by the service.
type taskEntity struct {
	aztables.Entity
	Title       string    `json:"Title"`
	Description string    `json:"Description"`
	Completed   bool      `json:"Completed"`
	CreatedAt   time.Time `json:"CreatedAt"`
	UpdatedAt   time.Time `json:"UpdatedAt"`
}

func edmTime(t time.Time) string {
	return t.UTC().Format(edmTimeLayout)
}

func encodeTaskRecord(t domain.Task) ([]byte, error) {
	return json.Marshal(taskRecord{
		entityKeys:    entityKeys{PartitionKey: taskPartition, RowKey: t.ID},
		Title:         t.Title,
		Description:   t.Description,
		Completed:     t.Completed,
		CreatedAt:     edmTime(t.CreatedAt),
		CreatedAtType: edmDateTime,
		UpdatedAt:     edmTime(t.UpdatedAt),
		UpdatedAtType: edmDateTime,
	})
}

func encodeTaskPatch(id string, p domain.TaskPatch, updatedAt time.Time) ([]byte, error) {
	return json.Marshal(taskRecordPatch{
		entityKeys:    entityKeys{PartitionKey: taskPartition, RowKey: id},
		Title:         p.Title,
		Description:   p.Description,
		Completed:     p.Completed,
		UpdatedAt:     edmTime(updatedAt),
		UpdatedAtType: edmDateTime,
	})
}

func decodeTaskEntity(data []byte) (domain.Task, error) {
	var ent taskEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Task{}, err
	}
	return domain.Task{
		ID:          ent.RowKey,
		Title:       ent.Title,
		Description: ent.Description,
		Completed:   ent.Completed,
		CreatedAt:   ent.CreatedAt.UTC(),
		UpdatedAt:   ent.UpdatedAt.UTC(),
	}, nil
}

func tableFilter(f domain.ListFilter) string {
	filter := "PartitionKey eq '" + taskPartition + "'"
	if f.Completed != nil {
		if *f.Completed {
			filter += " and Completed eq true"
		} else {
			filter += " and Completed eq false"
		}
	}
	return filter
}

func (s *TableStore) Create(ctx context.Context, in domain.NewTask) (domain.Task, error) {
	now := s.now()
	t := domain.Task{
		ID:          domain.NewID(),
		Title:       in.Title,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	payload, err := encodeTaskRecord(t)
	if err != nil {
		return domain.Task{}, domain.NewStoreError("create", err)
	}
	if _, err := s.table.AddEntity(ctx, payload, nil); err != nil {
		return domain.Task{}, domain.NewStoreError("create", err)
	}
	return t, nil
}

// List retrieves all tasks matching f.
func (s *TableStore) List(ctx context.Context, f domain.ListFilter) ([]domain.Task, error) {
	filter := tableFilter(f)
	pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, domain.NewStoreError("list", err)
		}
		for _, e := range resp.Entities {
			t, err := decodeTaskEntity(e)
			if err != nil {
				return nil, domain.NewStoreError("list", err)
			}
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

func (s *TableStore) Get(ctx context.Context, id string) (domain.Task, error) {
	ent, err := s.table.GetEntity(ctx, taskPartition, domain.CanonicalID(id), nil)
	if err != nil {
		return domain.Task{}, tableError("get", err)
	}
	t, err := decodeTaskEntity(ent.Value)
	if err != nil {
		return domain.Task{}, domain.NewStoreError("get", err)
	}
	return t, nil
}

// Update merges the patch into the stored entity and reads it back. The merge
// fails with 404 when the entity does not exist, so no entity is created.
func (s *TableStore) Update(ctx context.Context, id string, p domain.TaskPatch) (domain.Task, error) {
	id = domain.CanonicalID(id)
	if p.IsEmpty() {
		return s.Get(ctx, id)
	}
	payload, err := encodeTaskPatch(id, p, s.now())
	if err != nil {
		return domain.Task{}, domain.NewStoreError("update", err)
	}
	et := azcore.ETagAny
	_, err = s.table.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeMerge})
	if err != nil {
		return domain.Task{}, tableError("update", err)
	}
	return s.Get(ctx, id)
}

func (s *TableStore) Delete(ctx context.Context, id string) error {
	if _, err := s.table.DeleteEntity(ctx, taskPartition, domain.CanonicalID(id), nil); err != nil {
		return tableError("delete", err)
	}
	return nil
}

func (s *TableStore) Ping(ctx context.Context) error {
	top := int32(1)
	filter := tableFilter(domain.ListFilter{})
	pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter, Top: &top})
	if !pager.More() {
		return nil
	}
	_, err := pager.NextPage(ctx)
	return err
}

func tableError(op string, err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	return domain.NewStoreError(op, err)
}
