package projects_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/cohort/internal/authz"
	"github.com/JaimeStill/cohort/internal/criteria"
	"github.com/JaimeStill/cohort/internal/projects"
	"github.com/JaimeStill/cohort/pkg/auth"
	"github.com/JaimeStill/cohort/pkg/pagination"
	"github.com/JaimeStill/cohort/pkg/repository"
)

type mockSystem struct {
	listFn             func(ctx context.Context, caller string, page pagination.PageRequest) (*pagination.PageResult[projects.Project], error)
	findFn             func(ctx context.Context, caller string, id uuid.UUID) (*projects.Project, error)
	createFn           func(ctx context.Context, caller string, cmd projects.CreateCommand) (*projects.Project, error)
	renameFn           func(ctx context.Context, caller string, id uuid.UUID, name string) (*projects.Project, error)
	archiveFn          func(ctx context.Context, caller string, id uuid.UUID) (bool, error)
	rolesFn            func(ctx context.Context, caller string, id uuid.UUID) ([]projects.RoleGrant, error)
	updateRoleFn       func(ctx context.Context, caller string, id uuid.UUID, user string, grant authz.Grant) (*projects.RoleGrant, error)
	criterionFn        func(ctx context.Context, caller string, id uuid.UUID) (*projects.Revision, error)
	revisionsFn        func(ctx context.Context, caller string, id uuid.UUID) ([]projects.Revision, error)
	writeCriterionFn   func(ctx context.Context, caller string, id uuid.UUID, tree criteria.Node) (*projects.Revision, error)
	dataSourcesFn      func(ctx context.Context, caller string, id uuid.UUID) ([]projects.DataSource, error)
	writeDataSourcesFn func(ctx context.Context, caller string, id uuid.UUID, sources []projects.DataSource) ([]projects.DataSource, error)
}

func (m *mockSystem) Handler(maxBodySize int64) *projects.Handler {
	return newTestHandler(m)
}

func (m *mockSystem) List(ctx context.Context, caller string, page pagination.PageRequest) (*pagination.PageResult[projects.Project], error) {
	return m.listFn(ctx, caller, page)
}

func (m *mockSystem) Find(ctx context.Context, caller string, id uuid.UUID) (*projects.Project, error) {
	return m.findFn(ctx, caller, id)
}

func (m *mockSystem) Create(ctx context.Context, caller string, cmd projects.CreateCommand) (*projects.Project, error) {
	return m.createFn(ctx, caller, cmd)
}

func (m *mockSystem) Rename(ctx context.Context, caller string, id uuid.UUID, name string) (*projects.Project, error) {
	return m.renameFn(ctx, caller, id, name)
}

func (m *mockSystem) Archive(ctx context.Context, caller string, id uuid.UUID) (bool, error) {
	return m.archiveFn(ctx, caller, id)
}

func (m *mockSystem) Roles(ctx context.Context, caller string, id uuid.UUID) ([]projects.RoleGrant, error) {
	return m.rolesFn(ctx, caller, id)
}

func (m *mockSystem) UpdateRole(ctx context.Context, caller string, id uuid.UUID, user string, grant authz.Grant) (*projects.RoleGrant, error) {
	return m.updateRoleFn(ctx, caller, id, user, grant)
}

func (m *mockSystem) Criterion(ctx context.Context, caller string, id uuid.UUID) (*projects.Revision, error) {
	return m.criterionFn(ctx, caller, id)
}

func (m *mockSystem) Revisions(ctx context.Context, caller string, id uuid.UUID) ([]projects.Revision, error) {
	return m.revisionsFn(ctx, caller, id)
}

func (m *mockSystem) WriteCriterion(ctx context.Context, caller string, id uuid.UUID, tree criteria.Node) (*projects.Revision, error) {
	return m.writeCriterionFn(ctx, caller, id, tree)
}

func (m *mockSystem) DataSources(ctx context.Context, caller string, id uuid.UUID) ([]projects.DataSource, error) {
	return m.dataSourcesFn(ctx, caller, id)
}

func (m *mockSystem) WriteDataSources(ctx context.Context, caller string, id uuid.UUID, sources []projects.DataSource) ([]projects.DataSource, error) {
	return m.writeDataSourcesFn(ctx, caller, id, sources)
}

func newTestHandler(sys *mockSystem) *projects.Handler {
	return projects.NewHandler(
		sys,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
		1024*1024,
	)
}

func setupMux(h *projects.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	group := h.Routes()
	for _, route := range group.Routes {
		pattern := route.Method + " " + group.Prefix + route.Pattern
		mux.HandleFunc(pattern, route.Handler)
	}
	return mux
}

// asCaller attaches a resolved identity the way the auth middleware does.
func asCaller(req *http.Request, caller string) *http.Request {
	return req.WithContext(auth.WithCaller(req.Context(), caller))
}

var projectID = uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2")

func sampleProject() projects.Project {
	return projects.Project{
		ID:        projectID,
		Name:      "Sepsis cohort",
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestHandlerList(t *testing.T) {
	var gotCaller string
	sys := &mockSystem{
		listFn: func(_ context.Context, caller string, page pagination.PageRequest) (*pagination.PageResult[projects.Project], error) {
			gotCaller = caller
			result := pagination.NewPageResult([]projects.Project{sampleProject()}, 1, page.Page, page.PageSize)
			return &result, nil
		},
	}

	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	req := asCaller(httptest.NewRequest("GET", "/projects?page=1", nil), "alice")
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotCaller != "alice" {
		t.Errorf("caller = %q, want alice", gotCaller)
	}

	var result pagination.PageResult[projects.Project]
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Data) != 1 || result.Data[0].ID != projectID {
		t.Errorf("unexpected data: %+v", result.Data)
	}
}

func TestHandlerCreate(t *testing.T) {
	t.Run("creates project", func(t *testing.T) {
		var captured projects.CreateCommand
		sys := &mockSystem{
			createFn: func(_ context.Context, _ string, cmd projects.CreateCommand) (*projects.Project, error) {
				captured = cmd
				p := sampleProject()
				p.Name = cmd.Name
				grant := authz.Admin
				p.Grant = &grant
				return &p, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		req := asCaller(httptest.NewRequest("POST", "/projects", strings.NewReader(`{"name":"Heart failure"}`)), "alice")
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201", rec.Code)
		}
		if captured.Name != "Heart failure" {
			t.Errorf("name = %q, want Heart failure", captured.Name)
		}

		var p projects.Project
		if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if p.Grant == nil || *p.Grant != authz.Admin {
			t.Errorf("grant = %v, want ADMIN", p.Grant)
		}
	})

	t.Run("invalid body returns 400", func(t *testing.T) {
		mux := setupMux(newTestHandler(&mockSystem{}))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/projects", strings.NewReader("{"))
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("empty name returns 400", func(t *testing.T) {
		sys := &mockSystem{
			createFn: func(context.Context, string, projects.CreateCommand) (*projects.Project, error) {
				return nil, projects.ErrInvalidName
			},
		}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/projects", strings.NewReader(`{"name":""}`))
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandlerFind(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		err        error
		wantStatus int
	}{
		{"found", "/projects/" + projectID.String(), nil, http.StatusOK},
		{"invalid uuid", "/projects/not-a-uuid", nil, http.StatusBadRequest},
		{"unauthorized", "/projects/" + projectID.String(), authz.ErrUnauthorized, http.StatusForbidden},
		{"not found", "/projects/" + projectID.String(), projects.ErrNotFound, http.StatusNotFound},
		{"persistence", "/projects/" + projectID.String(), repository.Persistence(fmt.Errorf("conn reset"), "find project", projectID), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := &mockSystem{
				findFn: func(context.Context, string, uuid.UUID) (*projects.Project, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					p := sampleProject()
					return &p, nil
				},
			}
			mux := setupMux(newTestHandler(sys))

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandlerArchive(t *testing.T) {
	for _, archived := range []bool{true, false} {
		t.Run(fmt.Sprintf("archived=%t", archived), func(t *testing.T) {
			sys := &mockSystem{
				archiveFn: func(context.Context, string, uuid.UUID) (bool, error) {
					return archived, nil
				},
			}
			mux := setupMux(newTestHandler(sys))

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("DELETE", "/projects/"+projectID.String(), nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}

			var resp projects.ArchiveResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Archived != archived {
				t.Errorf("archived = %t, want %t", resp.Archived, archived)
			}
		})
	}
}

func TestHandlerUpdateRole(t *testing.T) {
	var gotUser string
	var gotGrant authz.Grant
	sys := &mockSystem{
		updateRoleFn: func(_ context.Context, _ string, id uuid.UUID, user string, grant authz.Grant) (*projects.RoleGrant, error) {
			gotUser, gotGrant = user, grant
			return &projects.RoleGrant{ProjectID: id, User: "BOB", Grant: grant}, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	body := bytes.NewBufferString(`{"user":"bob","grant":"JUDGE"}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("PUT", "/projects/"+projectID.String()+"/roles", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotUser != "bob" || gotGrant != authz.Judge {
		t.Errorf("got (%q, %q), want (bob, JUDGE)", gotUser, gotGrant)
	}
}

func TestHandlerCriterion(t *testing.T) {
	t.Run("no criterion returns 409", func(t *testing.T) {
		sys := &mockSystem{
			criterionFn: func(context.Context, string, uuid.UUID) (*projects.Revision, error) {
				return nil, fmt.Errorf("project %s: %w", projectID, projects.ErrNoCriterion)
			},
		}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", "/projects/"+projectID.String()+"/criterion", nil))

		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("write decodes tree", func(t *testing.T) {
		leaf := uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")
		var captured criteria.Node
		sys := &mockSystem{
			writeCriterionFn: func(_ context.Context, _ string, id uuid.UUID, tree criteria.Node) (*projects.Revision, error) {
				captured = tree
				return &projects.Revision{ProjectID: id, Criterion: tree, Author: "ALICE"}, nil
			},
		}
		mux := setupMux(newTestHandler(sys))

		body := fmt.Sprintf(`{"type":"logical","op":"AND","children":[{"type":"entity","node_uid":"%s","entity":{"code":"A41"}}]}`, leaf)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/projects/"+projectID.String()+"/criterion", strings.NewReader(body)))

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201", rec.Code)
		}
		leaves := criteria.Leaves(captured)
		if len(leaves) != 1 || leaves[0] != leaf {
			t.Errorf("leaves = %v, want [%s]", leaves, leaf)
		}
	})

	t.Run("malformed tree returns 400", func(t *testing.T) {
		sys := &mockSystem{
			writeCriterionFn: func(context.Context, string, uuid.UUID, criteria.Node) (*projects.Revision, error) {
				return nil, fmt.Errorf("%w: logical node has no children", criteria.ErrMalformed)
			},
		}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/projects/"+projectID.String()+"/criterion", strings.NewReader(`{"type":"logical","op":"AND"}`)))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandlerWriteDataSources(t *testing.T) {
	sys := &mockSystem{
		writeDataSourcesFn: func(_ context.Context, _ string, _ uuid.UUID, sources []projects.DataSource) ([]projects.DataSource, error) {
			return sources, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	body := `[{"id":"ehr","name":"EHR notes","type":"solr","options":{"core":"notes"}}]`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("PUT", "/projects/"+projectID.String()+"/data-sources", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got []projects.DataSource
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].ID != "ehr" {
		t.Errorf("unexpected sources: %+v", got)
	}
}

func TestHandlerConcealsUnresolved(t *testing.T) {
	sys := &mockSystem{
		rolesFn: func(context.Context, string, uuid.UUID) ([]projects.RoleGrant, error) {
			return nil, fmt.Errorf("project %s: %w", projectID, authz.ErrUnresolved)
		},
	}
	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/projects/"+projectID.String()+"/roles", nil))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != authz.ErrUnauthorized.Error() {
		t.Errorf("error = %q, want %q", body["error"], authz.ErrUnauthorized.Error())
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unauthorized", authz.ErrUnauthorized, http.StatusForbidden},
		{"unresolved", authz.ErrUnresolved, http.StatusForbidden},
		{"not found", projects.ErrNotFound, http.StatusNotFound},
		{"no criterion", projects.ErrNoCriterion, http.StatusConflict},
		{"invalid grant", authz.ErrInvalidGrant, http.StatusBadRequest},
		{"invalid data source", projects.ErrInvalidDataSource, http.StatusBadRequest},
		{"persistence", repository.ErrPersistence, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := projects.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
