package gcs

import "testing"

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs://receipts/2024/05/nota.jpg", "receipts", "2024/05/nota.jpg", false},
		{"gs://b/o", "b", "o", false},
		{"s3://b/o", "", "", true},
		{"gs://bucket-only", "", "", true},
		{"gs://bucket/", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseURI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("ParseURI(%q) = %q, %q", tt.uri, bucket, object)
			}
		})
	}
}

func TestURIRoundTrip(t *testing.T) {
	uri := URI("receipts", "scans/abc.png")
	bucket, object, err := ParseURI(uri)
	if err != nil {
		t.Fatal(err)
	}
	if bucket != "receipts" || object != "scans/abc.png" {
		t.Errorf("got %q %q", bucket, object)
	}
}

func TestExtractFilename(t *testing.T) {
	tests := map[string]string{
		"gs://bucket/folder/receipt.jpg": "receipt.jpg",
		"gs://bucket/receipt.jpg":        "receipt.jpg",
		"gs://bucket":                    "bucket",
	}
	for in, want := range tests {
		if got := ExtractFilename(in); got != want {
			t.Errorf("ExtractFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
