package catalog

import "testing"

func validDoc() routesDoc {
	return routesDoc{
		Lines: []lineDoc{
			{
				LineID: "L1",
				Name:   "Line 1",
				Stops: []stopDoc{
					{StopID: "S1", Name: "First", Latitude: 40.00, Longitude: -3.00, IsTerminal: true, BaseArrivalRate: 1.0},
					{StopID: "S2", Name: "Mid", Latitude: 40.05, Longitude: -3.05, IsTerminal: false, BaseArrivalRate: 0.5},
					{StopID: "S3", Name: "Last", Latitude: 40.10, Longitude: -3.10, IsTerminal: true, BaseArrivalRate: 0.8},
				},
				Buses: []busDoc{
					{BusID: "B1", Capacity: 80, InitialPosition: 0.0},
				},
			},
		},
	}
}

func TestBuild_ValidCatalog(t *testing.T) {
	c, err := build(validDoc())
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Routes) != 1 || len(c.Buses) != 1 {
		t.Fatalf("expected 1 route and 1 bus, got %d routes, %d buses", len(c.Routes), len(c.Buses))
	}
	if c.Buses["B1"].SpeedKmph != DefaultBusSpeedKmph {
		t.Fatalf("expected default speed %v, got %v", DefaultBusSpeedKmph, c.Buses["B1"].SpeedKmph)
	}
}

func TestBuild_RejectsLineWithNoBuses(t *testing.T) {
	doc := validDoc()
	doc.Lines[0].Buses = nil
	if _, err := build(doc); err == nil {
		t.Fatal("expected error for line with no buses")
	}
}

func TestBuild_RejectsDuplicateLineID(t *testing.T) {
	doc := validDoc()
	doc.Lines = append(doc.Lines, doc.Lines[0])
	if _, err := build(doc); err == nil {
		t.Fatal("expected error for duplicate line_id")
	}
}

func TestBuild_RejectsDuplicateBusIDAcrossLines(t *testing.T) {
	doc := validDoc()
	second := doc.Lines[0]
	second.LineID = "L2"
	doc.Lines = append(doc.Lines, second)
	if _, err := build(doc); err == nil {
		t.Fatal("expected error for duplicate bus_id across lines")
	}
}

func TestBuild_RejectsEmptyDoc(t *testing.T) {
	if _, err := build(routesDoc{}); err == nil {
		t.Fatal("expected error for empty document")
	}
}

func TestLineIDsServing_ReturnsAllLinesForAStop(t *testing.T) {
	c, err := build(validDoc())
	if err != nil {
		t.Fatal(err)
	}
	lines := c.LineIDsServing("S2")
	if len(lines) != 1 || lines[0] != "L1" {
		t.Fatalf("expected [L1], got %v", lines)
	}
}

func TestAllStops_DeduplicatesAndSortsByStopID(t *testing.T) {
	c, err := build(validDoc())
	if err != nil {
		t.Fatal(err)
	}
	stops := c.AllStops()
	if len(stops) != 3 {
		t.Fatalf("expected 3 stops, got %d", len(stops))
	}
	for i := 1; i < len(stops); i++ {
		if stops[i-1].StopID >= stops[i].StopID {
			t.Fatalf("expected sorted stop ids, got %v", stops)
		}
	}
}
