package route

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		path   string
		name   Name
		params map[string]string
	}{
		{"/", Login, map[string]string{}},
		{"/admin", Admin, map[string]string{}},
		{"/admin/", Admin, map[string]string{}},
		{"/broker/42", Broker, map[string]string{"id": "42"}},
		{"/broker/7f1c2a9e-1b2c-4d3e-8f90-123456789abc", Broker, map[string]string{"id": "7f1c2a9e-1b2c-4d3e-8f90-123456789abc"}},
		{"/broker/a%20b", Broker, map[string]string{"id": "a b"}},
		{"http://localhost:5173/broker/9?tab=portfolio", Broker, map[string]string{"id": "9"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			m, err := Resolve(tt.path)
			require.NoError(t, err)
			require.Equal(t, tt.name, m.Name)
			require.Equal(t, tt.params, m.Params)
		})
	}
}

func TestResolveUnknown(t *testing.T) {
	for _, p := range []string{"/brokers", "/broker", "/broker/1/extra", "/settings", "/broker/"} {
		_, err := Resolve(p)
		require.Error(t, err, p)
	}
}

func TestPath(t *testing.T) {
	p, err := Path(Broker, map[string]string{"id": "b-1"})
	require.NoError(t, err)
	require.Equal(t, "/broker/b-1", p)

	m, err := Resolve(p)
	require.NoError(t, err)
	require.Equal(t, "b-1", m.Params["id"])

	p, err = Path(Admin, nil)
	require.NoError(t, err)
	require.Equal(t, "/admin", p)

	p, err = Path(Login, nil)
	require.NoError(t, err)
	require.Equal(t, "/", p)

	_, err = Path(Broker, nil)
	require.Error(t, err)
	_, err = Path("nope", nil)
	require.Error(t, err)

	require.Equal(t, "/broker/x%2Fy", BrokerPath("x/y"))
}

func TestBrokerPathRoundTrip(t *testing.T) {
	m, err := Resolve(BrokerPath("x/y"))
	require.NoError(t, err)
	require.Equal(t, "x/y", m.Params["id"])
}
