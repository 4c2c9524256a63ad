package monitor

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/CyberFFarm/Helios-Cron/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
)

type TestServerSuite struct {
	suite.Suite
	registry *prometheus.Registry
	metrics  *Metrics
}

func (suite *TestServerSuite) SetupTest() {
	suite.registry = prometheus.NewRegistry()
	suite.metrics = NewMetrics(suite.registry)
}

func (suite *TestServerSuite) get(url string) (int, string) {
	resp, err := http.Get(url)
	suite.Require().NoError(err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	suite.Require().NoError(err)
	return resp.StatusCode, string(body)
}

func (suite *TestServerSuite) TestRouter() {
	var health error
	server := httptest.NewServer(NewRouter(suite.registry, func() error { return health }))
	defer server.Close()

	status, body := suite.get(server.URL + "/healthz")
	suite.Equal(http.StatusOK, status)
	suite.Equal("ok\n", body)

	health = errors.New("node unavailable")
	status, body = suite.get(server.URL + "/healthz")
	suite.Equal(http.StatusServiceUnavailable, status)
	suite.Contains(body, "node unavailable")

	suite.metrics.BlockHeight.Set(1234)
	status, body = suite.get(server.URL + "/metrics")
	suite.Equal(http.StatusOK, status)
	suite.Contains(body, "helios_cron_block_height 1234")
	suite.Contains(body, "helios_cron_poll_errors_total 0")

	status, _ = suite.get(server.URL + "/unknown")
	suite.Equal(http.StatusNotFound, status)
}

func (suite *TestServerSuite) TestServeListener() {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	suite.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ServeListener(ctx, listener, NewRouter(suite.registry, nil), log.Discard())
	}()

	url := "http://" + listener.Addr().String() + "/healthz"
	suite.Eventually(func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		suite.Require().NoError(err)
	case <-time.After(5 * time.Second):
		suite.Fail("the server didn't stop")
	}
}

func (suite *TestServerSuite) TestListen() {
	_, err := Listen("256.0.0.1:bad")
	suite.Require().Error(err)

	busy, err := Listen("127.0.0.1:0")
	suite.Require().NoError(err)
	defer busy.Close()

	// the bound port is rejected
	_, err = Listen(busy.Addr().String())
	suite.Require().Error(err)
	var opErr *net.OpError
	suite.True(errors.As(err, &opErr))
}

func TestServer(t *testing.T) {
	suite.Run(t, new(TestServerSuite))
}
