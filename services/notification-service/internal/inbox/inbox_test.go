package inbox

import (
	"context"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimAndRelease(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ins := regexp.QuoteMeta("insert into processed_events(event_id)")
	mock.ExpectExec(ins).WithArgs("e1").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(ins).WithArgs("e1").WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectExec(regexp.QuoteMeta("delete from processed_events")).WithArgs("e1").WillReturnResult(pgxmock.NewResult("DELETE", 1))

	p := &PG{DB: mock}
	fresh, err := p.Claim(context.Background(), "e1")
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = p.Claim(context.Background(), "e1")
	require.NoError(t, err)
	assert.False(t, fresh)

	require.NoError(t, p.Release(context.Background(), "e1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
