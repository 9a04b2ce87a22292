package cleanse

import (
	"errors"
	"testing"
)

func TestParseSaleDate_TableDriven(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "spreadsheet_long_form", in: "April 9, 2013", want: "2013-04-09"},
		{name: "spreadsheet_short_form", in: "Jun 10, 2014", want: "2014-06-10"},
		{name: "datetime_with_midnight", in: "2013-04-09 00:00:00", want: "2013-04-09"},
		{name: "datetime_with_time", in: "2013-04-09 14:30:12", want: "2013-04-09"},
		{name: "already_canonical", in: "2013-04-09", want: "2013-04-09"},
		{name: "us_slash_form", in: "4/9/2013", want: "2013-04-09"},
		{name: "leading_trailing_space", in: "  2013-04-09  ", want: "2013-04-09"},
		{name: "empty", in: "", wantErr: true},
		{name: "garbage", in: "not-a-date", wantErr: true},
		{name: "month_out_of_range", in: "2013-13-40", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSaleDate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSaleDate(%q) err=%v wantErr=%v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				var mde *MalformedDateError
				if !errors.As(err, &mde) {
					t.Fatalf("error is not *MalformedDateError: %v", err)
				}
				return
			}
			if got != tt.want {
				t.Fatalf("ParseSaleDate(%q)=%q want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseSaleDate_Idempotent(t *testing.T) {
	t.Parallel()

	once, err := ParseSaleDate("June 3, 2015")
	if err != nil {
		t.Fatalf("first parse: %v", err)
	}
	twice, err := ParseSaleDate(once)
	if err != nil {
		t.Fatalf("reparse of canonical form: %v", err)
	}
	if once != twice {
		t.Fatalf("not idempotent: %q vs %q", once, twice)
	}
}
