package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/nimburion/crudkit/pkg/model"
	"github.com/nimburion/crudkit/pkg/observability/logger"
	"github.com/nimburion/crudkit/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type widget struct {
	Name string `json:"name" bson:"name"`
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Create(ctx context.Context, item *widget) (*widget, error) {
	args := m.Called(ctx, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*widget), args.Error(1)
}

func (m *MockStore) GetAll(ctx context.Context) ([]widget, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]widget), args.Error(1)
}

func (m *MockStore) Update(ctx context.Context, id string, item *widget) (*widget, error) {
	args := m.Called(ctx, id, item)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*widget), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, id string) (*model.DeleteResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DeleteResult), args.Error(1)
}

func (m *MockStore) FindByID(ctx context.Context, id string) (*widget, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*widget), args.Error(1)
}

func (m *MockStore) FindOne(ctx context.Context, cond model.Filter) (*widget, error) {
	args := m.Called(ctx, cond)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*widget), args.Error(1)
}

func (m *MockStore) Find(ctx context.Context, cond model.Filter, opts *model.FindModelOptions) ([]widget, error) {
	args := m.Called(ctx, cond, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]widget), args.Error(1)
}

func newTestService(t *testing.T) (*Service[widget], *MockStore, *testutil.MockLogger) {
	t.Helper()
	store := new(MockStore)
	log := testutil.NewMockLogger()
	return New[widget](store, log), store, log
}

func emptyResponse() *model.ErrorInfo {
	info := model.NewErrorInfo(model.EmptyResponse, "", http.StatusBadRequest, nil)
	return &info
}

func TestNew_EntityName(t *testing.T) {
	svc, _, _ := newTestService(t)
	assert.Equal(t, "widget", svc.Entity())

	named := New[widget](new(MockStore), testutil.NewMockLogger(), WithEntityName("gadgets"))
	assert.Equal(t, "gadgets", named.Entity())
}

func TestNew_NilLoggerFallsBack(t *testing.T) {
	ctx := context.Background()
	store := new(MockStore)
	store.On("Create", ctx, mock.Anything).Return(nil, errors.New("connection reset"))

	var svc *Service[widget]
	require.NotPanics(t, func() { svc = New[widget](store, nil) })

	got := svc.Create(ctx, &widget{Name: "foobar"})
	require.NotNil(t, got.Error)
	assert.Equal(t, model.FailedToCreateResource, got.Error.Kind)
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("error")

	t.Run("returns the stored entity", func(t *testing.T) {
		svc, store, log := newTestService(t)
		input := &widget{Name: "foobar"}
		store.On("Create", ctx, input).Return(&widget{Name: "foobar"}, nil)

		got := svc.Create(ctx, input)
		assert.Equal(t, &model.EntityMetadata[widget]{Data: &widget{Name: "foobar"}}, got)
		assert.Empty(t, log.EntriesAt("error"))
		store.AssertExpectations(t)
	})

	t.Run("empty result", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		store.On("Create", ctx, mock.Anything).Return(nil, nil)

		got := svc.Create(ctx, &widget{Name: "foobar"})
		assert.Nil(t, got.Data)
		assert.Equal(t, emptyResponse(), got.Error)
	})

	t.Run("store failure", func(t *testing.T) {
		svc, store, log := newTestService(t)
		store.On("Create", ctx, mock.Anything).Return(nil, boom)

		got := svc.Create(ctx, &widget{Name: "foobar"})
		require.NotNil(t, got.Error)
		assert.Equal(t, model.NewErrorInfo(model.FailedToCreateResource, "", http.StatusBadRequest, boom), *got.Error)
		assert.Len(t, log.EntriesAt("error"), 1)
	})
}

func TestGetAll(t *testing.T) {
	ctx := context.Background()

	t.Run("returns every entity", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		all := []widget{{Name: "foobar"}, {Name: "barbaz"}}
		store.On("GetAll", ctx).Return(all, nil)

		got := svc.GetAll(ctx)
		require.NotNil(t, got.Data)
		assert.Equal(t, all, *got.Data)
	})

	t.Run("empty collection is data", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		store.On("GetAll", ctx).Return([]widget{}, nil)

		got := svc.GetAll(ctx)
		require.NotNil(t, got.Data)
		assert.Empty(t, *got.Data)
		assert.Nil(t, got.Error)
	})

	t.Run("nil result", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		store.On("GetAll", ctx).Return(nil, nil)

		assert.Equal(t, emptyResponse(), svc.GetAll(ctx).Error)
	})

	t.Run("store failure", func(t *testing.T) {
		svc, store, log := newTestService(t)
		boom := errors.New("error")
		store.On("GetAll", ctx).Return(nil, boom)

		got := svc.GetAll(ctx)
		assert.Equal(t, model.NewErrorInfo(model.UnhandledError, "", http.StatusBadRequest, boom), *got.Error)
		assert.Len(t, log.EntriesAt("error"), 1)
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	input := &widget{Name: "foobar"}

	t.Run("returns the updated entity", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		store.On("FindByID", ctx, "id").Return(&widget{Name: "old"}, nil)
		store.On("Update", ctx, "id", input).Return(&widget{Name: "foobar"}, nil)

		got := svc.Update(ctx, "id", input)
		assert.Equal(t, &widget{Name: "foobar"}, got.Data)
		store.AssertExpectations(t)
	})

	t.Run("empty result", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		store.On("FindByID", ctx, "id").Return(&widget{Name: "old"}, nil)
		store.On("Update", ctx, "id", input).Return(nil, nil)

		assert.Equal(t, emptyResponse(), svc.Update(ctx, "id", input).Error)
	})

	t.Run("not found skips the update", func(t *testing.T) {
		svc, store, log := newTestService(t)
		store.On("FindByID", ctx, "id").Return(nil, nil)

		got := svc.Update(ctx, "id", input)
		assert.Equal(t, model.NewErrorInfo(model.NotFound, "", http.StatusNotFound, nil), *got.Error)
		store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
		assert.Empty(t, log.EntriesAt("error"))
	})

	t.Run("store failure", func(t *testing.T) {
		svc, store, log := newTestService(t)
		boom := errors.New("error")
		store.On("FindByID", ctx, "id").Return(&widget{Name: "old"}, nil)
		store.On("Update", ctx, "id", input).Return(nil, boom)

		got := svc.Update(ctx, "id", input)
		assert.Equal(t, model.NewErrorInfo(model.FailedToUpdateResource, "", http.StatusBadRequest, boom), *got.Error)
		assert.Len(t, log.EntriesAt("error"), 1)
	})

	t.Run("lookup failure", func(t *testing.T) {
		svc, store, log := newTestService(t)
		boom := errors.New("lookup")
		store.On("FindByID", ctx, "id").Return(nil, boom)

		got := svc.Update(ctx, "id", input)
		assert.Equal(t, model.FailedToUpdateResource, got.Error.Kind)
		store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
		assert.Len(t, log.EntriesAt("error"), 1)
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		ack       *model.DeleteResult
		err       error
		wantData  bool
		wantError *model.ErrorInfo
	}{
		{
			name:     "removed",
			ack:      &model.DeleteResult{OK: 1, N: 1},
			wantData: true,
		},
		{
			name:      "nothing removed",
			ack:       &model.DeleteResult{OK: 0, N: 0},
			wantError: &model.ErrorInfo{Kind: model.FailedToDeleteResource, StatusCode: http.StatusBadRequest},
		},
		{
			name:      "acknowledged without removal",
			ack:       &model.DeleteResult{OK: 1, N: 0},
			wantError: &model.ErrorInfo{Kind: model.FailedToDeleteResource, StatusCode: http.StatusBadRequest},
		},
		{
			name:      "no acknowledgement",
			wantError: emptyResponse(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newTestService(t)
			store.On("FindByID", ctx, "id").Return(&widget{Name: "foobar"}, nil)
			if tt.ack == nil {
				store.On("Delete", ctx, "id").Return(nil, nil)
			} else {
				store.On("Delete", ctx, "id").Return(tt.ack, nil)
			}

			got := svc.Delete(ctx, "id")
			if tt.wantError != nil {
				assert.Nil(t, got.Data)
				assert.Equal(t, tt.wantError, got.Error)
				return
			}
			require.NotNil(t, got.Data)
			assert.Equal(t, tt.wantData, *got.Data)
			assert.Nil(t, got.Error)
		})
	}

	t.Run("not found skips the delete", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		store.On("FindByID", ctx, "id").Return(nil, nil)

		got := svc.Delete(ctx, "id")
		assert.Equal(t, model.NewErrorInfo(model.NotFound, "", http.StatusNotFound, nil), *got.Error)
		store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("store failure", func(t *testing.T) {
		svc, store, log := newTestService(t)
		boom := errors.New("error")
		store.On("FindByID", ctx, "id").Return(&widget{Name: "foobar"}, nil)
		store.On("Delete", ctx, "id").Return(nil, boom)

		got := svc.Delete(ctx, "id")
		assert.Equal(t, model.NewErrorInfo(model.FailedToDeleteResource, "", http.StatusBadRequest, boom), *got.Error)
		assert.Len(t, log.EntriesAt("error"), 1)
	})
}

func TestReads(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("error")
	cond := model.Filter{"name": "foobar"}
	opts := &model.FindModelOptions{Limit: 10}

	t.Run("find by id", func(t *testing.T) {
		svc, store, _ := newTestService(t)
		store.On("FindByID", ctx, "id").Return(&widget{Name: "foobar"}, nil).Once()
		assert.Equal(t, &widget{Name: "foobar"}, svc.FindByID(ctx, "id").Data)

		store.On("FindByID", ctx, "missing").Return(nil, nil)
		assert.Equal(t, emptyResponse(), svc.FindByID(ctx, "missing").Error)

		store.On("FindByID", ctx, "broken").Return(nil, boom)
		assert.Equal(t, model.UnhandledError, svc.FindByID(ctx, "broken").Error.Kind)
	})

	t.Run("find one", func(t *testing.T) {
		svc, store, log := newTestService(t)
		store.On("FindOne", ctx, cond).Return(&widget{Name: "foobar"}, nil).Once()
		assert.Equal(t, &widget{Name: "foobar"}, svc.FindOne(ctx, cond).Data)

		store.On("FindOne", ctx, cond).Return(nil, nil).Once()
		assert.Equal(t, emptyResponse(), svc.FindOne(ctx, cond).Error)

		store.On("FindOne", ctx, cond).Return(nil, boom).Once()
		got := svc.FindOne(ctx, cond)
		assert.Equal(t, model.NewErrorInfo(model.UnhandledError, "", http.StatusBadRequest, boom), *got.Error)
		assert.Len(t, log.EntriesAt("error"), 1)
	})

	t.Run("find", func(t *testing.T) {
		svc, store, log := newTestService(t)
		found := []widget{{Name: "foobar"}, {Name: "barbaz"}}
		store.On("Find", ctx, cond, opts).Return(found, nil).Once()
		assert.Equal(t, found, *svc.Find(ctx, cond, opts).Data)

		store.On("Find", ctx, cond, opts).Return(nil, nil).Once()
		assert.Equal(t, emptyResponse(), svc.Find(ctx, cond, opts).Error)

		store.On("Find", ctx, cond, opts).Return(nil, boom).Once()
		assert.Equal(t, model.UnhandledError, svc.Find(ctx, cond, opts).Error.Kind)
		assert.Len(t, log.EntriesAt("error"), 1)
	})
}

func TestFailureLogCarriesRequestID(t *testing.T) {
	svc, store, log := newTestService(t)
	ctx := logger.ContextWithRequestID(context.Background(), "req-42")
	store.On("GetAll", ctx).Return(nil, errors.New("error"))

	svc.GetAll(ctx)

	entries := log.EntriesAt("error")
	require.Len(t, entries, 1)
	assert.Equal(t, "req-42", entries[0].Fields["request_id"])
	assert.Equal(t, "widget", entries[0].Fields["entity"])
	assert.Equal(t, "get_all", entries[0].Fields["operation"])
}
