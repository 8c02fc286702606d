package timeseries

import "testing"

func TestBucketizePlacesSamplesInNearestBucket(t *testing.T) {
	// endTS=100, step=10, numBuckets=5 -> bucket ends: 60,70,80,90,100
	raw := []rawSample{
		{Timestamp: 61, Value: 1},
		{Timestamp: 95, Value: 2},
	}
	out := bucketize(raw, 100, 10, 5)
	if out[1] != 1 {
		t.Fatalf("expected bucket 1 (end=70, earliest end>=61) to hold sample at 61, got %v", out)
	}
	if out[4] != 2 {
		t.Fatalf("expected bucket 4 (end=100) to hold sample at 95, got %v", out)
	}
	if out[0] != 0 || out[2] != 0 || out[3] != 0 {
		t.Fatalf("expected untouched buckets to stay zero, got %v", out)
	}
}

func TestBucketizeDropsSamplesTooOldForAnyBucket(t *testing.T) {
	raw := []rawSample{{Timestamp: 1, Value: 99}}
	out := bucketize(raw, 100, 10, 5)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("expected all-zero buckets for a too-old sample, bucket %d = %v", i, v)
		}
	}
}
