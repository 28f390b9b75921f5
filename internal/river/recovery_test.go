package river

import (
	"errors"
	"testing"
)

func TestIsRecoverable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "broken pipe",
			err:  errors.New("rethinkdb: Broken pipe"),
			want: true,
		},
		{
			name: "error receiving data",
			err:  errors.New("rethinkdb: Error receiving data: connection reset"),
			want: true,
		},
		{
			name: "query interrupted",
			err:  errors.New("rethinkdb: Query interrupted. Did you shut down the server?"),
			want: true,
		},
		{
			name: "shard master unavailable",
			err:  errors.New(`cannot perform read: Master for shard ["", +inf) not available`),
			want: true,
		},
		{
			name: "out of memory",
			err:  errors.New("rethinkdb: Out of memory"),
			want: false,
		},
		{
			name: "table missing",
			err:  errors.New("Table `blog.posts` does not exist"),
			want: false,
		},
		{
			name: "nil",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsRecoverable(tt.err); got != tt.want {
				t.Errorf("IsRecoverable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
