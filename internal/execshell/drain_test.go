package execshell

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	testDrainPollIntervalConstant = 10 * time.Millisecond
	testDrainDelayConstant        = 80 * time.Millisecond
	testDrainResultWaitConstant   = 5 * time.Second
)

type drainFixture struct {
	streamReader    *os.File
	streamWriter    *os.File
	interruptReader *os.File
	interruptWriter *os.File
}

func newDrainFixture(testInstance *testing.T) *drainFixture {
	testInstance.Helper()
	streamReader, streamWriter, streamPipeError := os.Pipe()
	require.NoError(testInstance, streamPipeError)
	interruptReader, interruptWriter, interruptPipeError := os.Pipe()
	require.NoError(testInstance, interruptPipeError)

	fixture := &drainFixture{
		streamReader:    streamReader,
		streamWriter:    streamWriter,
		interruptReader: interruptReader,
		interruptWriter: interruptWriter,
	}
	testInstance.Cleanup(func() {
		closeQuietly(fixture.streamReader)
		closeQuietly(fixture.streamWriter)
		closeQuietly(fixture.interruptReader)
		closeQuietly(fixture.interruptWriter)
	})
	return fixture
}

func (fixture *drainFixture) start(testInstance *testing.T, sink *bytes.Buffer) <-chan error {
	testInstance.Helper()
	streamDescriptor, streamDescriptorError := nonblockingDescriptor(fixture.streamReader)
	require.NoError(testInstance, streamDescriptorError)
	interruptDescriptor, interruptDescriptorError := nonblockingDescriptor(fixture.interruptReader)
	require.NoError(testInstance, interruptDescriptorError)

	result := make(chan error, 1)
	go func() {
		streams := []monitoredStream{{descriptor: streamDescriptor, sink: sink}}
		result <- newDrainLoop(testDrainPollIntervalConstant).run(streams, interruptDescriptor)
	}()
	return result
}

func awaitDrain(testInstance *testing.T, result <-chan error) error {
	testInstance.Helper()
	select {
	case drainError := <-result:
		return drainError
	case <-time.After(testDrainResultWaitConstant):
		require.FailNow(testInstance, "drain loop did not return")
		return nil
	}
}

func TestDrainLoopReadsUntilEndOfStream(testInstance *testing.T) {
	testCases := []struct {
		name    string
		payload string
	}{
		{name: "empty_stream", payload: ""},
		{name: "single_block", payload: "short diagnostic\n"},
		{name: "exact_block", payload: strings.Repeat("b", DiagnosticBlockSize)},
		{name: "many_blocks", payload: strings.Repeat("diagnostic line\n", 4096)},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fixture := newDrainFixture(testInstance)
			var sink bytes.Buffer
			result := fixture.start(testInstance, &sink)

			go func() {
				_, _ = fixture.streamWriter.WriteString(testCase.payload)
				_ = fixture.streamWriter.Close()
			}()

			require.NoError(testInstance, awaitDrain(testInstance, result))
			require.Equal(testInstance, testCase.payload, sink.String())
		})
	}
}

func TestDrainLoopPollsAgainWhenIdle(testInstance *testing.T) {
	fixture := newDrainFixture(testInstance)
	var sink bytes.Buffer
	result := fixture.start(testInstance, &sink)

	time.Sleep(testDrainDelayConstant)
	_, writeError := fixture.streamWriter.WriteString("late\n")
	require.NoError(testInstance, writeError)
	time.Sleep(testDrainDelayConstant)
	require.NoError(testInstance, fixture.streamWriter.Close())

	require.NoError(testInstance, awaitDrain(testInstance, result))
	require.Equal(testInstance, "late\n", sink.String())
}

func TestDrainLoopStopsOnInterrupt(testInstance *testing.T) {
	fixture := newDrainFixture(testInstance)
	var sink bytes.Buffer
	result := fixture.start(testInstance, &sink)

	_, writeError := fixture.streamWriter.WriteString("partial")
	require.NoError(testInstance, writeError)
	time.Sleep(testDrainDelayConstant)
	require.NoError(testInstance, fixture.interruptWriter.Close())

	require.ErrorIs(testInstance, awaitDrain(testInstance, result), errDrainInterrupted)
	require.Equal(testInstance, "partial", sink.String())
}

func TestNewDrainLoopDefaults(testInstance *testing.T) {
	loop := newDrainLoop(0)
	require.Equal(testInstance, DefaultPollInterval, loop.pollInterval)
	require.Equal(testInstance, DiagnosticBlockSize, loop.blockSize)
}
