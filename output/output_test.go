package output

import "testing"

func TestReadLogWeightsBeforeAnyWriteReturnsErrNoRecords(t *testing.T) {
	m := NewMemory()
	if _, err := m.ReadLogWeights(); err != ErrNoRecords {
		t.Fatalf("ReadLogWeights on empty sink = %v, want ErrNoRecords", err)
	}
}

func TestReadTrajectoryWalksAncestryBackwards(t *testing.T) {
	m := NewMemory()

	// Step 0: two particles, no resample yet.
	m.WriteState(0, [][]float64{{1}, {10}}, []int{0, 1}, false)
	m.WriteLogWeights(0, []float64{0, 0})

	// Step 1: resample collapses everyone onto particle 0's ancestor line.
	m.WriteState(1, [][]float64{{2}, {2}}, []int{0, 0}, true)
	m.WriteLogWeights(1, []float64{0, 0})

	// Step 2: no further resample.
	m.WriteState(2, [][]float64{{3}, {20}}, []int{0, 1}, false)
	m.WriteLogWeights(2, []float64{0, 0})

	var traj [][]float64
	if err := m.ReadTrajectory(0, &traj); err != nil {
		t.Fatalf("ReadTrajectory returned error: %v", err)
	}
	if len(traj) != 3 {
		t.Fatalf("len(traj) = %d, want 3", len(traj))
	}
	want := []float64{1, 2, 3}
	for i, row := range traj {
		if row[0] != want[i] {
			t.Fatalf("traj[%d][0] = %v, want %v", i, row[0], want[i])
		}
	}
}

func TestClearResetsAllState(t *testing.T) {
	m := NewMemory()
	m.WriteParameters([]float64{1, 2})
	m.WriteState(0, [][]float64{{1}}, []int{0}, false)
	m.WriteLogWeights(0, []float64{0})
	m.WriteLL(-12.3)

	m.Clear()

	if _, ok := m.LL(); ok {
		t.Fatalf("LL still recorded after Clear")
	}
	if _, err := m.ReadLogWeights(); err != ErrNoRecords {
		t.Fatalf("ReadLogWeights after Clear = %v, want ErrNoRecords", err)
	}
}

func TestRecordsReturnsStepsInScheduleOrder(t *testing.T) {
	m := NewMemory()
	m.WriteTime(0, 0.0)
	m.WriteState(0, [][]float64{{1}}, []int{0}, false)
	m.WriteLogWeights(0, []float64{0})
	m.WriteTime(1, 1.0)
	m.WriteState(1, [][]float64{{2}}, []int{0}, false)
	m.WriteLogWeights(1, []float64{0})

	records := m.Records()
	if len(records) != 2 {
		t.Fatalf("len(Records()) = %d, want 2", len(records))
	}
	if records[0].Time != 0.0 || records[1].Time != 1.0 {
		t.Fatalf("Records() out of schedule order: %+v", records)
	}
}

func TestWriteStateCopiesInput(t *testing.T) {
	m := NewMemory()
	dyn := [][]float64{{1, 2}}
	as := []int{0}
	m.WriteState(0, dyn, as, false)

	dyn[0][0] = 999
	as[0] = 42

	var traj [][]float64
	m.WriteLogWeights(0, []float64{0})
	if err := m.ReadTrajectory(0, &traj); err != nil {
		t.Fatalf("ReadTrajectory returned error: %v", err)
	}
	if traj[0][0] == 999 {
		t.Fatalf("WriteState aliased caller's dyn buffer")
	}
}
