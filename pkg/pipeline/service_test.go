package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/mimir-aip/pathway-graph/pkg/apperrors"
	"github.com/mimir-aip/pathway-graph/pkg/expression"
	"github.com/mimir-aip/pathway-graph/pkg/metadatastore"
	"github.com/mimir-aip/pathway-graph/pkg/models"
	"github.com/mimir-aip/pathway-graph/pkg/network"
	"github.com/mimir-aip/pathway-graph/pkg/storage"
)

const participantsTSV = `complex_id	complex_name	entity_id	entity_name	entity_type	organism
C1	Complex 1	E1	Entity 1	protein	Homo sapiens
C1	Complex 1	E2	Entity 2	protein	Homo sapiens
C1	Complex 1	E1	Entity 1	protein	Homo sapiens
C2	Complex 2	C1		complex	Homo sapiens
C2	Complex 2	E3	Entity 3	small_molecule	Homo sapiens
C3	Mouse complex	E9	Entity 9	protein	Mus musculus
`

const pathwaysTSV = `complex_id	pathway_id	pathway_name
C2	P1	Signaling
C1	P2	DNA repair
`

const reactionsTSV = `reaction_id	reaction_name	participant_id	role
R1	Reaction 1	E1	input
R1	Reaction 1	E4	output
R1	Reaction 1	C2	catalyst
`

const expressionTSV = `id	t0	t1
E1	1.0	NA
C2	-0.5	0.25
`

const manifestYAML = `name: test-network
source_version: "86"
complex_participants:
  path: participants.tsv
  organism_column: organism
complex_pathways:
  path: pathways.tsv
reaction_participants:
  path: reactions.tsv
expression:
  path: expression.tsv
  id_column: id
`

func writeFixtures(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	return dir
}

func defaultFixtures() map[string]string {
	return map[string]string{
		"participants.tsv": participantsTSV,
		"pathways.tsv":     pathwaysTSV,
		"reactions.tsv":    reactionsTSV,
		"expression.tsv":   expressionTSV,
		"manifest.yaml":    manifestYAML,
	}
}

func setupTestService(t *testing.T) (*Service, string) {
	t.Helper()
	outDir := t.TempDir()

	files, err := storage.NewFileStore(filepath.Join(outDir, "networks"))
	if err != nil {
		t.Fatalf("Failed to create file store: %v", err)
	}
	store, err := metadatastore.NewSQLiteStore(filepath.Join(outDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create SQLite store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return NewService(files, store, zap.NewNop(), DefaultOptions()), outDir
}

func TestLoadManifest(t *testing.T) {
	dir := writeFixtures(t, defaultFixtures())

	m, err := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		t.Fatalf("Failed to load manifest: %v", err)
	}
	if m.Name != "test-network" || m.SourceVersion != "86" {
		t.Errorf("Unexpected manifest header: %+v", m)
	}
	if m.ComplexParticipants.Path != filepath.Join(dir, "participants.tsv") {
		t.Errorf("Expected path resolved against manifest dir, got %s", m.ComplexParticipants.Path)
	}
	if m.Expression == nil || m.Expression.Path != filepath.Join(dir, "expression.tsv") {
		t.Errorf("Expected expression path resolved, got %+v", m.Expression)
	}
	if m.ReactionPathways != nil {
		t.Error("Expected no reaction pathways table")
	}
}

func TestLoadManifestErrors(t *testing.T) {
	if _, err := LoadManifest(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, apperrors.ErrIO) {
		t.Errorf("Expected ErrIO, got %v", err)
	}
	if _, err := ParseManifest([]byte("name: x\n"), "."); !errors.Is(err, apperrors.ErrSchema) {
		t.Errorf("Expected ErrSchema for missing tables, got %v", err)
	}
	if _, err := ParseManifest([]byte("name: [unclosed"), "."); !errors.Is(err, apperrors.ErrSchema) {
		t.Errorf("Expected ErrSchema for bad yaml, got %v", err)
	}
}

func TestBuild(t *testing.T) {
	service, _ := setupTestService(t)
	dir := writeFixtures(t, defaultFixtures())
	m, err := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		t.Fatalf("Failed to load manifest: %v", err)
	}

	record, err := service.Build(context.Background(), m)
	if err != nil {
		t.Fatalf("Failed to build: %v", err)
	}
	if record.ID == "" {
		t.Error("Expected build ID to be set")
	}
	if record.Status != models.BuildStatusBuilt {
		t.Errorf("Expected status built, got %s", record.Status)
	}
	// E1 E2 E3 C1 C2 R1 E4; the mouse complex is filtered out
	if record.NodeCount != 7 {
		t.Errorf("Expected 7 nodes, got %d", record.NodeCount)
	}
	if record.Organism != models.DefaultOrganism || record.SourceVersion != "86" {
		t.Errorf("Unexpected record metadata: %+v", record)
	}
	if _, err := os.Stat(record.FilePath); err != nil {
		t.Errorf("Expected network file at %s: %v", record.FilePath, err)
	}

	n, err := service.Network(record.ID)
	if err != nil {
		t.Fatalf("Failed to load stored network: %v", err)
	}
	e1, ok := n.Node("E1")
	if !ok {
		t.Fatal("Expected node E1")
	}
	// E1 is in C1 (DNA repair) and through C1 in C2 (Signaling)
	if !e1.Processes.Has("Signaling") || !e1.Processes.Has("DNA repair") {
		t.Errorf("Expected inherited processes, got %v", e1.Processes.Sorted())
	}
	if _, ok := n.Node("C3"); ok {
		t.Error("Expected mouse complex to be filtered out")
	}
}

func TestRunAnnotates(t *testing.T) {
	service, _ := setupTestService(t)
	dir := writeFixtures(t, defaultFixtures())

	record, err := service.RunManifest(context.Background(), filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		t.Fatalf("Failed to run manifest: %v", err)
	}
	if record.Status != models.BuildStatusAnnotated {
		t.Errorf("Expected status annotated, got %s", record.Status)
	}

	n, err := service.Network(record.ID)
	if err != nil {
		t.Fatalf("Failed to load stored network: %v", err)
	}
	if got := n.Metadata.SampleKeys; len(got) != 2 || got[0] != "t0" || got[1] != "t1" {
		t.Errorf("Expected sample keys [t0 t1], got %v", got)
	}
	e1, _ := n.Node("E1")
	if v := e1.Expression["t0"]; v == nil || *v != 1.0 {
		t.Errorf("Expected supplied value 1.0 for E1/t0, got %v", v)
	}
	for _, node := range n.OrderedNodes() {
		for _, key := range []string{"t0", "t1"} {
			if !node.HasValue(key) {
				t.Errorf("Node %s has no value for %s", node.ID, key)
			}
			if _, ok := node.RGBAJS[key]; !ok {
				t.Errorf("Node %s has no rgba_js for %s", node.ID, key)
			}
		}
	}

	builds, err := service.List()
	if err != nil {
		t.Fatalf("Failed to list builds: %v", err)
	}
	if len(builds) != 1 {
		t.Errorf("Expected 1 build, got %d", len(builds))
	}
}

func TestBuildOrphanPersistsNothing(t *testing.T) {
	service, outDir := setupTestService(t)
	fixtures := defaultFixtures()
	fixtures["pathways.tsv"] = pathwaysTSV + "C9\tP3\tMissing\n"
	dir := writeFixtures(t, fixtures)

	m, err := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		t.Fatalf("Failed to load manifest: %v", err)
	}
	if _, err := service.Build(context.Background(), m); !errors.Is(err, apperrors.ErrReconciliation) {
		t.Fatalf("Expected ErrReconciliation, got %v", err)
	}

	builds, _ := service.List()
	if len(builds) != 0 {
		t.Errorf("Expected no builds, got %d", len(builds))
	}
	files, _ := storage.NewFileStore(filepath.Join(outDir, "networks"))
	if names, _ := files.ListNetworks(); len(names) != 0 {
		t.Errorf("Expected no network files, got %v", names)
	}
}

// flakyStore fails SaveBuild while fail is set
type flakyStore struct {
	metadatastore.MetadataStore
	fail bool
}

func (f *flakyStore) SaveBuild(record *models.BuildRecord, n *models.Network) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.MetadataStore.SaveBuild(record, n)
}

func TestPersistRollsBackOnCatalogFailure(t *testing.T) {
	outDir := t.TempDir()
	files, err := storage.NewFileStore(filepath.Join(outDir, "networks"))
	if err != nil {
		t.Fatalf("Failed to create file store: %v", err)
	}
	sqlite, err := metadatastore.NewSQLiteStore(filepath.Join(outDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create SQLite store: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	store := &flakyStore{MetadataStore: sqlite}
	service := NewService(files, store, zap.NewNop(), DefaultOptions())

	ctx := context.Background()
	dir := writeFixtures(t, defaultFixtures())
	m, _ := LoadManifest(filepath.Join(dir, "manifest.yaml"))

	store.fail = true
	if _, err := service.Build(ctx, m); err == nil {
		t.Fatal("Expected build to fail")
	}
	if names, _ := files.ListNetworks(); len(names) != 0 {
		t.Errorf("Expected failed build to leave no file, got %v", names)
	}

	store.fail = false
	record, err := service.Build(ctx, m)
	if err != nil {
		t.Fatalf("Failed to build: %v", err)
	}

	store.fail = true
	if _, _, err := service.Annotate(ctx, record.ID, expression.Values{}, []string{"t0"}); err == nil {
		t.Fatal("Expected annotation to fail")
	}
	onDisk, err := files.LoadNetwork(record.ID)
	if err != nil {
		t.Fatalf("Expected network file to survive: %v", err)
	}
	if len(onDisk.Metadata.SampleKeys) != 0 {
		t.Errorf("Expected file restored to the unannotated network, got keys %v", onDisk.Metadata.SampleKeys)
	}
	got, _ := service.Get(record.ID)
	if got.Status != models.BuildStatusBuilt {
		t.Errorf("Expected catalog to stay unannotated, got %s", got.Status)
	}
}

func TestBuildsOfSameManifestKeepSeparateFiles(t *testing.T) {
	service, _ := setupTestService(t)
	ctx := context.Background()
	dir := writeFixtures(t, defaultFixtures())
	m, _ := LoadManifest(filepath.Join(dir, "manifest.yaml"))

	first, err := service.Build(ctx, m)
	if err != nil {
		t.Fatalf("Failed to build: %v", err)
	}
	second, err := service.Build(ctx, m)
	if err != nil {
		t.Fatalf("Failed to build: %v", err)
	}
	if first.FilePath == second.FilePath {
		t.Fatalf("Expected distinct files, both at %s", first.FilePath)
	}

	if _, _, err := service.Annotate(ctx, first.ID, expression.Values{}, []string{"t0"}); err != nil {
		t.Fatalf("Failed to annotate: %v", err)
	}
	data, err := os.ReadFile(second.FilePath)
	if err != nil {
		t.Fatalf("Failed to read second network: %v", err)
	}
	n, err := network.Unmarshal(data)
	if err != nil {
		t.Fatalf("Failed to decode second network: %v", err)
	}
	if len(n.Metadata.SampleKeys) != 0 {
		t.Errorf("Expected second build untouched, got keys %v", n.Metadata.SampleKeys)
	}
}

func TestAnnotateErrors(t *testing.T) {
	service, _ := setupTestService(t)
	ctx := context.Background()

	if _, _, err := service.Annotate(ctx, "missing", nil, []string{"t0"}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, _, err := service.Annotate(ctx, "missing", nil, nil); !errors.Is(err, apperrors.ErrSchema) {
		t.Errorf("Expected ErrSchema for empty keys, got %v", err)
	}

	dir := writeFixtures(t, defaultFixtures())
	m, _ := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	record, err := service.Build(ctx, m)
	if err != nil {
		t.Fatalf("Failed to build: %v", err)
	}

	opts := DefaultOptions()
	opts.MaxValue = 0
	service.opts = opts
	if _, _, err := service.Annotate(ctx, record.ID, expression.Values{}, []string{"t0"}); !errors.Is(err, apperrors.ErrRange) {
		t.Errorf("Expected ErrRange, got %v", err)
	}
	got, _ := service.Get(record.ID)
	if got.Status != models.BuildStatusBuilt {
		t.Errorf("Expected build to stay unannotated, got %s", got.Status)
	}
}

type fakeChecker struct {
	version string
	calls   int
}

func (f *fakeChecker) LatestVersion(ctx context.Context) (string, error) {
	f.calls++
	return f.version, nil
}

func TestBuildRunsVersionCheck(t *testing.T) {
	service, _ := setupTestService(t)
	checker := &fakeChecker{version: "87"}
	service.WithVersionChecker(checker)

	dir := writeFixtures(t, defaultFixtures())
	m, _ := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	if _, err := service.Build(context.Background(), m); err != nil {
		t.Fatalf("Outdated source should not fail the build: %v", err)
	}
	if checker.calls != 1 {
		t.Errorf("Expected 1 version check, got %d", checker.calls)
	}
}

func TestHTTPVersionChecker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/about":
			w.Write([]byte("<html><h1>Current release: Version 86</h1></html>"))
		case "/blank":
			w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	ctx := context.Background()
	version, err := NewHTTPVersionChecker(server.URL+"/about", nil).LatestVersion(ctx)
	if err != nil {
		t.Fatalf("Failed to check version: %v", err)
	}
	if version != "86" {
		t.Errorf("Expected version 86, got %s", version)
	}

	if _, err := NewHTTPVersionChecker(server.URL+"/blank", nil).LatestVersion(ctx); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := NewHTTPVersionChecker(server.URL+"/gone", nil).LatestVersion(ctx); !errors.Is(err, apperrors.ErrIO) {
		t.Errorf("Expected ErrIO, got %v", err)
	}
}
