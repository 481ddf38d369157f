package testutil

import (
	"context"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// FileSuite provides a temp directory, a bounded context and a test logger
// for suites that read and write parquet files.
type FileSuite struct {
	suite.Suite
	ctx     context.Context
	cancel  context.CancelFunc
	tempDir string
	logger  *zap.Logger
}

// SetupTest runs before every test in the suite
func (s *FileSuite) SetupTest() {
	s.ctx, s.cancel = TestContext(s.T())
	s.tempDir = s.T().TempDir()
	s.logger = zaptest.NewLogger(s.T())
}

// TearDownTest runs after every test in the suite
func (s *FileSuite) TearDownTest() {
	s.cancel()
}

// Context returns the test context
func (s *FileSuite) Context() context.Context {
	return s.ctx
}

// Logger returns a logger writing to the test output
func (s *FileSuite) Logger() *zap.Logger {
	return s.logger
}

// TempDir returns the temporary directory path
func (s *FileSuite) TempDir() string {
	return s.tempDir
}

// Path joins name onto the temp directory
func (s *FileSuite) Path(name string) string {
	return filepath.Join(s.tempDir, name)
}

// Sample writes the sample table to the temp directory
func (s *FileSuite) Sample(name string, rows int, props ...parquet.WriterProperty) string {
	return WriteSample(s.T(), s.tempDir, name, rows, props...)
}

// ReadFile returns the content of a file, failing the test on error
func (s *FileSuite) ReadFile(path string) []byte {
	data, err := os.ReadFile(path)
	require.NoError(s.T(), err)
	return data
}
