package logging_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/heroku/color"
	"github.com/sclevine/spec"
	"github.com/sclevine/spec/report"

	ilogging "github.com/stagecraft/stagecraft/internal/logging"
	h "github.com/stagecraft/stagecraft/testhelpers"
)

const (
	timeFmt  = "2006/01/02 15:04:05.000000"
	testTime = "2019/05/15 01:01:01.000000"
)

func TestLogWriter(t *testing.T) {
	color.Disable(true)
	defer color.Disable(false)
	spec.Run(t, "LogWriter", testLogWriter, spec.Sequential(), spec.Report(report.Terminal{}))
}

func testLogWriter(t *testing.T, when spec.G, it spec.S) {
	var (
		writer *ilogging.LogWriter
		out    bytes.Buffer

		clockFunc = func() time.Time {
			clock, _ := time.Parse(timeFmt, testTime)
			return clock
		}
	)

	it.After(func() {
		out.Reset()
	})

	when("wantTime is true", func() {
		it("has time", func() {
			writer = ilogging.NewLogWriter(&out, clockFunc, true)
			writer.Write([]byte("test\n"))
			h.AssertEq(t, out.String(), "2019/05/15 01:01:01.000000 test\n")
		})
	})

	when("wantTime is false", func() {
		it("doesn't have time", func() {
			writer = ilogging.NewLogWriter(&out, clockFunc, false)
			writer.Write([]byte("test\n"))
			h.AssertEq(t, out.String(), "test\n")
		})
	})

	when("color is disabled", func() {
		it("strips color codes", func() {
			writer = ilogging.NewLogWriter(&out, clockFunc, false)
			writer.Write([]byte("\x1b[34mmounted\x1b[0m\n"))
			h.AssertEq(t, out.String(), "mounted\n")
		})
	})
}
