package plc

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTable(t *testing.T) *IOTable {
	t.Helper()
	table, err := NewIOTable(
		[]string{"START", "STOP"},
		[]string{"MOTOR", "LAMP"},
		map[string]bool{"LAMP": true},
	)
	require.NoError(t, err)
	return table
}

func TestNewIOTable_Validation(t *testing.T) {
	tests := []struct {
		name    string
		inputs  []string
		outputs []string
		initial map[string]bool
	}{
		{"empty name", []string{""}, nil, nil},
		{"duplicate input", []string{"A", "A"}, nil, nil},
		{"duplicate output", nil, []string{"B", "B"}, nil},
		{"overlap", []string{"A"}, []string{"A"}, nil},
		{"initial for undeclared", nil, []string{"B"}, map[string]bool{"C": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIOTable(tt.inputs, tt.outputs, tt.initial)
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err))
		})
	}
}

func TestIOTable_DeclarationOrderAndInitialValues(t *testing.T) {
	table := newTestTable(t)

	assert.Equal(t, []string{"START", "STOP"}, table.InputNames())
	assert.Equal(t, []string{"MOTOR", "LAMP"}, table.OutputNames())
	assert.Equal(t, map[string]bool{"MOTOR": false, "LAMP": true}, table.Outputs())
	assert.Equal(t, map[string]bool{"START": false, "STOP": false}, table.Inputs())
}

func TestIOTable_UnknownSignal(t *testing.T) {
	table := newTestTable(t)

	_, err := table.GetInput("MISSING")
	assert.True(t, IsUnknownSignal(err))

	err = table.SetInput("MOTOR", true)
	assert.True(t, IsUnknownSignal(err), "outputs are not writable as inputs")

	_, err = table.GetOutput("START")
	assert.True(t, IsUnknownSignal(err))

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "START", pe.Signal)
}

func TestIOTable_ScanCommitPublishesOutputs(t *testing.T) {
	table := newTestTable(t)
	require.NoError(t, table.SetInput("START", true))

	scan := table.BeginScan()
	assert.True(t, scan.Input("START"))
	scan.SetOutput("MOTOR", true)

	// Not visible before commit.
	v, err := table.GetOutput("MOTOR")
	require.NoError(t, err)
	assert.False(t, v)

	changes, err := table.Commit(scan)
	require.NoError(t, err)
	assert.Equal(t, []SignalChange{
		{Direction: DirectionInput, Name: "START", Value: true},
		{Direction: DirectionOutput, Name: "MOTOR", Value: true},
	}, changes)

	v, err = table.GetOutput("MOTOR")
	require.NoError(t, err)
	assert.True(t, v)
}

func TestIOTable_InputsLatchedAtScanStart(t *testing.T) {
	table := newTestTable(t)

	scan := table.BeginScan()
	require.NoError(t, table.SetInput("START", true))
	assert.False(t, scan.Input("START"), "mid-scan writes wait for the next scan")

	_, err := table.Commit(scan)
	require.NoError(t, err)

	next := table.BeginScan()
	assert.True(t, next.Input("START"))
}

func TestIOTable_FailedScanIsNotCommitted(t *testing.T) {
	table := newTestTable(t)

	scan := table.BeginScan()
	scan.SetOutput("MOTOR", true)
	scan.SetOutput("NOPE", true)
	scan.SetOutput("LAMP", false)

	_, err := table.Commit(scan)
	require.Error(t, err)
	assert.True(t, IsUnknownSignal(err))
	assert.Equal(t, map[string]bool{"MOTOR": false, "LAMP": true}, table.Outputs())
}

func TestIOTable_CommitTwiceFails(t *testing.T) {
	table := newTestTable(t)
	scan := table.BeginScan()

	_, err := table.Commit(scan)
	require.NoError(t, err)
	_, err = table.Commit(scan)
	assert.Error(t, err)
}

func TestIOTable_ConcurrentInputWrites(t *testing.T) {
	table := newTestTable(t)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = table.SetInput("START", i%2 == 0)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			scan := table.BeginScan()
			scan.SetOutput("MOTOR", scan.Input("START"))
			_, _ = table.Commit(scan)
			_ = table.Outputs()
		}
	}()
	wg.Wait()

	require.NoError(t, table.SetInput("START", true))
	scan := table.BeginScan()
	assert.True(t, scan.Input("START"))
}

func TestScan_FirstErrorSticks(t *testing.T) {
	scan := NewScan(map[string]bool{"A": true}, map[string]bool{"Q": false})

	assert.False(t, scan.Input("B"))
	first := scan.Err()
	require.Error(t, first)

	scan.Fail(errors.New("later"))
	assert.Same(t, first, scan.Err())
}

func TestScan_Notes(t *testing.T) {
	scan := NewScan(nil, nil)
	scan.Notef("motor %s", "started")
	scan.Notef("count=%d", 5)
	assert.Equal(t, []string{"motor started", "count=5"}, scan.Notes())
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "START", NormalizeName(" start "))
	assert.Equal(t, "LED1", NormalizeName("led1"))
	assert.Equal(t, "BRUSH_AT_END", NormalizeName("Brush_At_End"))
}
