package correction

import (
	"sync"
	"testing"
)

func sampleEdits() []Edit {
	return []Edit{{Original: "She go", Corrected: "She goes", Explanation: "agreement"}}
}

func TestRecordsPutTake(t *testing.T) {
	r := NewRecords()

	id := r.Put("chat-1", sampleEdits())
	if id == "" {
		t.Fatal("Put() returned empty id")
	}

	edits, ok := r.Take("chat-1", id)
	if !ok {
		t.Fatal("Take() ok = false for a fresh record")
	}
	if len(edits) != 1 || edits[0].Original != "She go" {
		t.Fatalf("Take() = %+v", edits)
	}
}

func TestRecordsTakeDeletes(t *testing.T) {
	r := NewRecords()
	id := r.Put("chat-1", sampleEdits())

	if _, ok := r.Take("chat-1", id); !ok {
		t.Fatal("first Take() failed")
	}
	if _, ok := r.Take("chat-1", id); ok {
		t.Fatal("second Take() succeeded, want record deleted after first display")
	}
}

func TestRecordsChatScoped(t *testing.T) {
	r := NewRecords()
	id := r.Put("chat-1", sampleEdits())

	if _, ok := r.Take("chat-2", id); ok {
		t.Fatal("Take() succeeded across chats")
	}
	if _, ok := r.Take("chat-1", id); !ok {
		t.Fatal("record lost after a miss from another chat")
	}
}

func TestRecordsUnknownID(t *testing.T) {
	r := NewRecords()
	if _, ok := r.Take("chat-1", "nope"); ok {
		t.Fatal("Take() ok = true for unknown id")
	}
}

func TestRecordsClear(t *testing.T) {
	r := NewRecords()
	id1 := r.Put("chat-1", sampleEdits())
	id2 := r.Put("chat-1", sampleEdits())
	keep := r.Put("chat-2", sampleEdits())

	r.Clear("chat-1")

	if _, ok := r.Take("chat-1", id1); ok {
		t.Fatal("record survived Clear()")
	}
	if _, ok := r.Take("chat-1", id2); ok {
		t.Fatal("record survived Clear()")
	}
	if _, ok := r.Take("chat-2", keep); !ok {
		t.Fatal("Clear() removed another chat's record")
	}
}

func TestRecordsDistinctIDs(t *testing.T) {
	r := NewRecords()
	id1 := r.Put("chat-1", sampleEdits())
	id2 := r.Put("chat-1", sampleEdits())
	if id1 == id2 {
		t.Fatal("Put() returned duplicate ids")
	}
}

func TestRecordsConcurrent(t *testing.T) {
	r := NewRecords()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := r.Put("chat-1", sampleEdits())
			if _, ok := r.Take("chat-1", id); !ok {
				t.Error("Take() failed for own record")
			}
		}()
	}
	wg.Wait()
}
