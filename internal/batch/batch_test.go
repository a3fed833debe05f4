package batch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Navl-bm/go-oficios/docx"
	"github.com/Navl-bm/go-oficios/docx/docxtest"
	"github.com/Navl-bm/go-oficios/internal/access"
	"github.com/Navl-bm/go-oficios/internal/contract"
	"github.com/Navl-bm/go-oficios/internal/convert"
	"github.com/Navl-bm/go-oficios/internal/ledger"
	"github.com/Navl-bm/go-oficios/internal/pack"
	"github.com/Navl-bm/go-oficios/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var fixedNow = time.Date(2025, 1, 20, 10, 30, 0, 0, time.UTC)

func writeTemplate(t *testing.T, body ...string) string {
	t.Helper()
	paras := make([]string, len(body))
	for i, b := range body {
		paras[i] = docxtest.Paragraph(b)
	}
	path := filepath.Join(t.TempDir(), "plantilla.docx")
	require.NoError(t, os.WriteFile(path, docxtest.Build(paras...), 0o644))
	return path
}

func shared() contract.Shared {
	return contract.Shared{
		NumeroOficio:  "001/2025",
		Sede:          "Oaxaca",
		Ubicacion:     "Centro",
		FechaComision: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Horario:       "9:00 a 14:00",
		FechaEmision:  time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC),
		Comision:      "Supervision",
	}
}

func recipient(nombre, rfc string) contract.Recipient {
	return contract.Recipient{Nombre: nombre, ApellidoPaterno: "Lopez", ApellidoMaterno: "Ruiz", RFC: rfc}
}

type fixture struct {
	store  *storage.Memory
	ledger *ledger.Memory
	states []State
}

func newService(t *testing.T, tpl string, strategy pack.Strategy, packager pack.Packager, mod func(*Options)) (*Service, *fixture) {
	t.Helper()
	f := &fixture{store: storage.NewMemory(), ledger: &ledger.Memory{}}
	if packager == nil {
		var err error
		packager, err = pack.New(strategy, pack.Options{})
		require.NoError(t, err)
	}
	opts := Options{
		TemplatePath: tpl,
		Delims:       docx.DefaultDelims,
		Strategy:     strategy,
		Packager:     packager,
		Store:        f.store,
		Ledger:       f.ledger,
		Now:          func() time.Time { return fixedNow },
		NewID:        func() string { return "lote-1" },
		Observer:     func(s State) { f.states = append(f.states, s) },
	}
	if mod != nil {
		mod(&opts)
	}
	svc, err := New(opts)
	require.NoError(t, err)
	return svc, f
}

func artifactText(t *testing.T, data []byte) string {
	t.Helper()
	tpl, err := docx.ReadTemplate(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	d, err := tpl.Fill(nil, docx.DefaultDelims)
	require.NoError(t, err)
	return d.Text()
}

func TestRun_AnaScenario(t *testing.T) {
	tpl := writeTemplate(t,
		"Oficio {{numero_oficio}}",
		"{{nombre}} {{apellido_paterno}} {{apellido_materno}}, RFC {{rfc}}",
		"Comision el {{fecha}} de {{horario}}. Emitido el {{fecha_emision}}",
	)
	svc, f := newService(t, tpl, pack.StrategyDocx, nil, nil)

	res, err := svc.Run(context.Background(), Request{
		Recipients: []contract.Recipient{recipient("Ana", "AAA010101XXX")},
		Shared:     shared(),
		Operator:   "ventanilla",
	})
	require.NoError(t, err)

	assert.Equal(t, "lote-1", res.BatchID)
	assert.Equal(t, "oficios_001_2025.docx", res.Artifact)
	assert.Empty(t, res.Warnings)
	assert.Equal(t,
		"Oficio 001/2025\n"+
			"Ana Lopez Ruiz, RFC AAA010101XXX\n"+
			"Comision el 15 de enero del 2025 de 9:00 a 14:00. Emitido el 20 de enero del 2025",
		artifactText(t, res.Data))

	stored, ok := f.store.Get(res.Artifact)
	require.True(t, ok)
	assert.Equal(t, res.Data, stored)

	entries, err := f.ledger.Entries(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Seq)
	assert.Equal(t, "AAA010101XXX", entries[0].RFC)
	assert.Equal(t, "lote-1", entries[0].BatchID)
	assert.Equal(t, "ventanilla", entries[0].Operador)
	assert.Equal(t, "15 de enero del 2025", entries[0].FechaComision)
	assert.Equal(t, fixedNow, entries[0].RegisteredAt)
}

func TestRun_PreservesSelectionOrder(t *testing.T) {
	tpl := writeTemplate(t, "Oficio para {{nombre}}")
	people := map[string]contract.Recipient{
		"Ana":   recipient("Ana", "A1"),
		"Beto":  recipient("Beto", "B2"),
		"Carla": recipient("Carla", "C3"),
	}

	for _, order := range [][]string{
		{"Ana", "Beto", "Carla"},
		{"Carla", "Ana", "Beto"},
		{"Beto", "Carla", "Ana"},
	} {
		t.Run(strings.Join(order, ","), func(t *testing.T) {
			svc, f := newService(t, tpl, pack.StrategyDocx, nil, nil)
			var sel []contract.Recipient
			var want []string
			for _, n := range order {
				sel = append(sel, people[n])
				want = append(want, "Oficio para "+n)
			}

			res, err := svc.Run(context.Background(), Request{Recipients: sel, Shared: shared()})
			require.NoError(t, err)
			assert.Equal(t, strings.Join(want, "\n\n"), artifactText(t, res.Data))

			entries, err := f.ledger.Entries(context.Background())
			require.NoError(t, err)
			var got []string
			for _, e := range entries {
				got = append(got, e.Nombre)
			}
			if diff := cmp.Diff(order, got); diff != "" {
				t.Errorf("ledger order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRun_EmptySelectionFailsFast(t *testing.T) {
	svc, f := newService(t, writeTemplate(t, "{{nombre}}"), pack.StrategyDocx, nil, nil)

	res, err := svc.Run(context.Background(), Request{Shared: shared()})
	require.Error(t, err)
	assert.ErrorIs(t, err, contract.ErrValidation)
	assert.Contains(t, err.Error(), "не выбран ни один получатель")
	assert.Empty(t, res.Written)
	assert.Empty(t, f.store.Names())

	entries, err := f.ledger.Entries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, []State{StateValidating, StateFailed}, f.states)
}

func TestRun_ValidationListsEveryProblem(t *testing.T) {
	svc, f := newService(t, writeTemplate(t, "{{nombre}}"), pack.StrategyDocx, nil, nil)

	s := shared()
	s.Sede = " "
	incomplete := recipient("", "B2")
	incomplete.Row = 4
	_, err := svc.Run(context.Background(), Request{
		Recipients: []contract.Recipient{recipient("Ana", "A1"), incomplete, recipient("Otra", "a1")},
		Shared:     s,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, contract.ErrValidation)
	assert.Contains(t, err.Error(), "sede")
	assert.Contains(t, err.Error(), "B2 (fila 4)")
	assert.Contains(t, err.Error(), "RFC повторяется: a1")
	assert.Empty(t, f.store.Names())
}

func TestRun_TemplateMissing(t *testing.T) {
	svc, f := newService(t, filepath.Join(t.TempDir(), "nope.docx"), pack.StrategyDocx, nil, nil)

	_, err := svc.Run(context.Background(), Request{
		Recipients: []contract.Recipient{recipient("Ana", "A1")},
		Shared:     shared(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, contract.ErrTemplateLoad)
	assert.ErrorIs(t, err, docx.ErrTemplate)
	assert.Equal(t, contract.CodeTemplate, contract.Classify(err))
	assert.Empty(t, f.store.Names())
}

func TestRun_ConversionFailureNamesRFC(t *testing.T) {
	stub := &convert.Stub{FailOn: map[string]error{"oficio_B2.docx": errors.New("soffice crashed")}}
	packager := &pack.ConvertMerge{Converter: stub, Merger: joinMerger{}}
	svc, f := newService(t, writeTemplate(t, "{{rfc}}"), pack.StrategyPDF, packager, nil)

	_, err := svc.Run(context.Background(), Request{
		Recipients: []contract.Recipient{recipient("Ana", "A1"), recipient("Beto", "B2"), recipient("Carla", "C3")},
		Shared:     shared(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, contract.ErrConversion)
	assert.Contains(t, err.Error(), "RFC B2")
	assert.Equal(t, []string{"oficio_A1.docx", "oficio_B2.docx"}, stub.Calls())
	assert.Empty(t, f.store.Names())
	assert.Equal(t, StateFailed, f.states[len(f.states)-1])
}

func TestRun_PDF(t *testing.T) {
	stub := &convert.Stub{}
	packager := &pack.ConvertMerge{Converter: stub, Merger: joinMerger{}}
	svc, _ := newService(t, writeTemplate(t, "{{rfc}}"), pack.StrategyPDF, packager, nil)

	res, err := svc.Run(context.Background(), Request{
		Recipients: []contract.Recipient{recipient("Beto", "B2"), recipient("Ana", "A1")},
		Shared:     shared(),
	})
	require.NoError(t, err)
	assert.Equal(t, "oficios_001_2025.pdf", res.Artifact)
	assert.Equal(t, "%PDF-stub oficio_B2.docx|%PDF-stub oficio_A1.docx", string(res.Data))
}

func TestRun_PartialArtifacts(t *testing.T) {
	svc, f := newService(t, writeTemplate(t, "{{rfc}}"), pack.StrategyDocx, nil, func(o *Options) {
		o.KeepDocuments = true
	})
	f.store.Err = errors.New("disk full")
	f.store.FailOn = "oficio_B2.docx"

	res, err := svc.Run(context.Background(), Request{
		Recipients: []contract.Recipient{recipient("Ana", "A1"), recipient("Beto", "B2"), recipient("Carla", "C3")},
		Shared:     shared(),
	})
	require.Error(t, err)

	var perr *PartialError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, []string{"oficio_A1.docx"}, perr.Written)
	assert.ErrorIs(t, err, contract.ErrIO)
	assert.Contains(t, err.Error(), "oficio_A1.docx")
	assert.Equal(t, []string{"oficio_A1.docx"}, f.store.Names())
	assert.Equal(t, []string{"oficio_A1.docx"}, res.Written)

	entries, err := f.ledger.Entries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_KeepDocuments(t *testing.T) {
	svc, f := newService(t, writeTemplate(t, "{{rfc}}"), pack.StrategyDocx, nil, func(o *Options) {
		o.KeepDocuments = true
	})

	res, err := svc.Run(context.Background(), Request{
		Recipients: []contract.Recipient{recipient("Beto", "B2"), recipient("Ana", "A1")},
		Shared:     shared(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"oficio_B2.docx", "oficio_A1.docx", "oficios_001_2025.docx"}, res.Written)

	one, ok := f.store.Get("oficio_A1.docx")
	require.True(t, ok)
	assert.Equal(t, "A1", artifactText(t, one))
}

func TestRun_LedgerFailureIsNotFatal(t *testing.T) {
	svc, f := newService(t, writeTemplate(t, "{{rfc}}"), pack.StrategyDocx, nil, nil)
	f.ledger.Err = errors.New("locked")

	res, err := svc.Run(context.Background(), Request{
		Recipients: []contract.Recipient{recipient("Ana", "A1")},
		Shared:     shared(),
	})
	require.NoError(t, err)
	assert.ErrorIs(t, res.LedgerErr, contract.ErrLedgerWrite)
	assert.Empty(t, res.Ledger)
	assert.Equal(t, []string{"oficios_001_2025.docx"}, f.store.Names())
	assert.Equal(t, StateDone, f.states[len(f.states)-1])
}

func TestRun_LedgerIsMonotonic(t *testing.T) {
	svc, f := newService(t, writeTemplate(t, "{{rfc}}"), pack.StrategyDocx, nil, nil)
	ctx := context.Background()

	_, err := svc.Run(ctx, Request{
		Recipients: []contract.Recipient{recipient("Ana", "A1"), recipient("Beto", "B2")},
		Shared:     shared(),
	})
	require.NoError(t, err)
	before, err := f.ledger.Entries(ctx)
	require.NoError(t, err)

	res, err := svc.Run(ctx, Request{
		Recipients: []contract.Recipient{recipient("Carla", "C3"), recipient("Dario", "D4"), recipient("Eva", "E5")},
		Shared:     shared(),
	})
	require.NoError(t, err)

	after, err := f.ledger.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, after, 5)
	assert.Equal(t, before, after[:2])
	assert.Equal(t, []int{3, 4, 5}, []int{res.Ledger[0].Seq, res.Ledger[1].Seq, res.Ledger[2].Seq})
}

func TestRun_Unauthorized(t *testing.T) {
	svc, f := newService(t, writeTemplate(t, "{{rfc}}"), pack.StrategyDocx, nil, func(o *Options) {
		o.Gate = access.NewGate("secreto")
	})
	req := Request{Recipients: []contract.Recipient{recipient("Ana", "A1")}, Shared: shared(), Password: "otro"}

	_, err := svc.Run(context.Background(), req)
	assert.ErrorIs(t, err, contract.ErrUnauthorized)
	assert.Empty(t, f.store.Names())
	assert.Empty(t, f.states)

	req.Password = "secreto"
	_, err = svc.Run(context.Background(), req)
	assert.NoError(t, err)
}

func TestRun_States(t *testing.T) {
	svc, f := newService(t, writeTemplate(t, "{{rfc}}"), pack.StrategyDocx, nil, nil)

	_, err := svc.Run(context.Background(), Request{
		Recipients: []contract.Recipient{recipient("Ana", "A1"), recipient("Beto", "B2")},
		Shared:     shared(),
	})
	require.NoError(t, err)
	assert.Equal(t, []State{
		StateValidating, StateGenerating, StateGenerating, StateCollected, StatePackaging, StateDone,
	}, f.states)
}

func TestRun_UnknownPlaceholderWarns(t *testing.T) {
	svc, _ := newService(t, writeTemplate(t, "{{rfc}} {{departamento}}"), pack.StrategyDocx, nil, nil)

	res, err := svc.Run(context.Background(), Request{
		Recipients: []contract.Recipient{recipient("Ana", "A1")},
		Shared:     shared(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1: плейсхолдер {{departamento}} без значения"}, res.Warnings)
}

func TestRun_Single(t *testing.T) {
	svc, f := newService(t, writeTemplate(t, "{{nombre}}"), pack.StrategySingle, nil, nil)

	res, err := svc.Run(context.Background(), Request{
		Recipients: []contract.Recipient{recipient("Ana", "A1")},
		Shared:     shared(),
	})
	require.NoError(t, err)
	assert.Equal(t, "oficio_A1.docx", res.Artifact)
	assert.Equal(t, "Ana", artifactText(t, res.Data))

	_, err = svc.Run(context.Background(), Request{
		Recipients: []contract.Recipient{recipient("Ana", "A1"), recipient("Beto", "B2")},
		Shared:     shared(),
	})
	assert.ErrorIs(t, err, contract.ErrValidation)
	assert.Equal(t, []string{"oficio_A1.docx"}, f.store.Names())
}

func TestRun_Canceled(t *testing.T) {
	svc, f := newService(t, writeTemplate(t, "{{rfc}}"), pack.StrategyDocx, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Run(ctx, Request{
		Recipients: []contract.Recipient{recipient("Ana", "A1")},
		Shared:     shared(),
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.store.Names())
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
	_, err = New(Options{TemplatePath: "x.docx"})
	assert.Error(t, err)
	_, err = New(Options{TemplatePath: "x.docx", Packager: pack.Concatenate{}})
	assert.Error(t, err)
}

func TestStateTransitions(t *testing.T) {
	m := &machine{}
	assert.Error(t, m.to(StateFailed))
	assert.Error(t, m.to(StateGenerating))
	require.NoError(t, m.to(StateValidating))
	require.NoError(t, m.to(StateGenerating))
	assert.Error(t, m.to(StateDone))
	require.NoError(t, m.to(StateFailed))
	assert.Error(t, m.to(StateFailed))
	assert.True(t, m.state.IsTerminal())
	assert.Equal(t, "failed", m.state.String())
}

// joinMerger склеивает "PDF" через |, чтобы проверять порядок.
type joinMerger struct{}

func (joinMerger) Merge(pdfs [][]byte) ([]byte, error) {
	return bytes.Join(pdfs, []byte("|")), nil
}

func TestRun_DocxWarnsOnPerRecipientHeader(t *testing.T) {
	tpl := filepath.Join(t.TempDir(), "plantilla.docx")
	require.NoError(t, os.WriteFile(tpl, docxtest.BuildWithHeader("RFC {{rfc}}", docxtest.Paragraph("{{nombre}}")), 0o644))
	svc, _ := newService(t, tpl, pack.StrategyDocx, nil, nil)

	res, err := svc.Run(context.Background(), Request{
		Recipients: []contract.Recipient{recipient("Ana", "A1"), recipient("Beto", "B2")},
		Shared:     shared(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"word/header1.xml: колонтитул различается у получателей, в общем документе останется вариант A1"}, res.Warnings)

	// архив хранит документы по отдельности, предупреждать не о чем
	svc, _ = newService(t, tpl, pack.StrategyZip, nil, nil)
	res, err = svc.Run(context.Background(), Request{
		Recipients: []contract.Recipient{recipient("Ana", "A1"), recipient("Beto", "B2")},
		Shared:     shared(),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
}
