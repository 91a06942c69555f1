package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sep-portal-api/pkg/errors"
)

func TestPathID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name  string
		value string
		ok    bool
	}{
		{name: "uuid", value: testRegistrationID, ok: true},
		{name: "padded uuid", value: " " + testRegistrationID + " ", ok: true},
		{name: "slug", value: "reg-1", ok: false},
		{name: "integer", value: "42", ok: false},
		{name: "empty", value: "", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newGinContext(http.MethodGet, "/", nil)
			c.Params = gin.Params{{Key: "id", Value: tc.value}}
			id, err := pathID(c)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, testRegistrationID, id)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrNotFound))
		})
	}
}

func TestRequireUUIDs(t *testing.T) {
	assert.NoError(t, requireUUIDs("ids", []string{testRegistrationID}))
	err := requireUUIDs("ids", []string{testRegistrationID, "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
