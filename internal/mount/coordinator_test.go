package mount_test

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/heroku/color"
	"github.com/onsi/gomega/ghttp"
	"github.com/pkg/errors"
	"github.com/sclevine/spec"
	"github.com/sclevine/spec/report"

	"github.com/stagecraft/stagecraft/internal/fsutil"
	"github.com/stagecraft/stagecraft/internal/mount"
	"github.com/stagecraft/stagecraft/internal/mount/testmocks"
	"github.com/stagecraft/stagecraft/pkg/logging"
	h "github.com/stagecraft/stagecraft/testhelpers"
)

func TestCoordinator(t *testing.T) {
	color.Disable(true)
	defer color.Disable(false)
	spec.Run(t, "Coordinator", testCoordinator, spec.Sequential(), spec.Report(report.Terminal{}))
}

// failingRestoreFS fails renames onto dest.
type failingRestoreFS struct {
	*fsutil.OS
	dest string
}

func (f failingRestoreFS) Rename(from, to string) error {
	if to == f.dest {
		return &os.LinkError{Op: "rename", Old: from, New: to, Err: os.ErrPermission}
	}
	return f.OS.Rename(from, to)
}

func testCoordinator(t *testing.T, when spec.G, it spec.S) {
	var (
		p   *project
		ctx = context.TODO()
	)

	it.Before(func() {
		p = newProject(t)
	})

	when("the engine is mocked", func() {
		var (
			mockController *gomock.Controller
			mockEngine     *testmocks.MockEngine
			subject        *mount.Coordinator
			recA, recB     *mount.Record
		)

		it.Before(func() {
			mockController = gomock.NewController(t)
			mockEngine = testmocks.NewMockEngine(mockController)
			subject = mount.NewCoordinator(mockEngine, p.ledger, logging.New(p.logs))

			recA = &mount.Record{Key: "0", Dest: filepath.Join("unit", "a"), Replaced: mount.None()}
			recB = &mount.Record{Key: "1", Dest: filepath.Join("unit", "b"), Replaced: mount.StashedAt("stash-b")}
		})

		it.After(func() {
			mockController.Finish()
		})

		files := mount.FileMap{
			{Dest: "a", Source: "src/a"},
			{Dest: "b", Source: "src/b"},
			{Dest: "c", Source: "src/c"},
		}

		it("mounts every mapping under the unit in order", func() {
			recC := &mount.Record{Key: "2", Dest: filepath.Join("unit", "c"), Replaced: mount.None()}
			gomock.InOrder(
				mockEngine.EXPECT().Mount(gomock.Any(), "src/a", filepath.Join("unit", "a")).Return(recA, nil),
				mockEngine.EXPECT().Mount(gomock.Any(), "src/b", filepath.Join("unit", "b")).Return(recB, nil),
				mockEngine.EXPECT().Mount(gomock.Any(), "src/c", filepath.Join("unit", "c")).Return(recC, nil),
			)

			h.AssertNil(t, subject.DoMount(ctx, files, "unit"))
		})

		it("undoes applied mounts newest first when one fails", func() {
			mountErr := &mount.Error{Kind: mount.ErrCopyFailed, Path: "src/c", Err: errors.New("disk full")}
			gomock.InOrder(
				mockEngine.EXPECT().Mount(gomock.Any(), "src/a", gomock.Any()).Return(recA, nil),
				mockEngine.EXPECT().Mount(gomock.Any(), "src/b", gomock.Any()).Return(recB, nil),
				mockEngine.EXPECT().Mount(gomock.Any(), "src/c", gomock.Any()).Return(nil, mountErr),
				mockEngine.EXPECT().Unmount(*recB).Return(nil),
				mockEngine.EXPECT().Unmount(*recA).Return(nil),
				mockEngine.EXPECT().Reset(),
			)

			err := subject.DoMount(ctx, files, "unit")

			var aggregate *mount.AggregateError
			h.AssertTrue(t, errors.As(err, &aggregate))
			h.AssertEq(t, len(aggregate.Errors), 1)
			h.AssertTrue(t, errors.Is(err, mount.ErrCopyFailed))
			h.AssertError(t, err, "1 error occurred:\n\t* copy failed: 'src/c': disk full")
		})

		it("rolls back the record of a mount that failed while materializing", func() {
			gomock.InOrder(
				mockEngine.EXPECT().Mount(gomock.Any(), "src/a", gomock.Any()).Return(recA, nil),
				mockEngine.EXPECT().Mount(gomock.Any(), "src/b", gomock.Any()).Return(recB, &mount.Error{Kind: mount.ErrDownloadFailed, Path: "src/b"}),
				mockEngine.EXPECT().Unmount(*recB).Return(nil),
				mockEngine.EXPECT().Unmount(*recA).Return(nil),
				mockEngine.EXPECT().Reset(),
			)

			err := subject.DoMount(ctx, files, "unit")
			h.AssertTrue(t, errors.Is(err, mount.ErrDownloadFailed))
		})

		it("keeps rolling back past failures and reports all of them", func() {
			gomock.InOrder(
				mockEngine.EXPECT().Mount(gomock.Any(), "src/a", gomock.Any()).Return(recA, nil),
				mockEngine.EXPECT().Mount(gomock.Any(), "src/b", gomock.Any()).Return(recB, nil),
				mockEngine.EXPECT().Mount(gomock.Any(), "src/c", gomock.Any()).Return(nil, &mount.Error{Kind: mount.ErrSourceNotFound, Path: "src/c"}),
				mockEngine.EXPECT().Unmount(*recB).Return(errors.New("b is stuck")),
				mockEngine.EXPECT().Unmount(*recA).Return(nil),
				mockEngine.EXPECT().Reset(),
			)

			err := subject.DoMount(ctx, files, "unit")

			var aggregate *mount.AggregateError
			h.AssertTrue(t, errors.As(err, &aggregate))
			h.AssertEq(t, len(aggregate.Errors), 2)
			h.AssertTrue(t, errors.Is(err, mount.ErrSourceNotFound))
			h.AssertContains(t, err.Error(), "2 errors occurred:")
			h.AssertContains(t, err.Error(), "b is stuck")
		})

		it("reports nothing when the ledger is empty", func() {
			mockEngine.EXPECT().Reset()

			h.AssertNil(t, subject.ClearMounts())
			h.AssertNotContains(t, p.logs.String(), "preexisting")
		})

		it("resets the session even when the sweep fails", func() {
			h.AssertNil(t, p.records.Write("0", []byte(`{"dest":"unit/a","replaced":false}`)))
			gomock.InOrder(
				mockEngine.EXPECT().Unmount(gomock.Any()).Return(errors.New("device busy")),
				mockEngine.EXPECT().Reset(),
			)

			err := subject.ClearMounts()
			h.AssertError(t, err, "undoing mount record 0: device busy")
		})

		it("resets the session when sweeping mounts of this run", func() {
			gomock.InOrder(
				mockEngine.EXPECT().Mount(gomock.Any(), "src/a", gomock.Any()).Return(recA, nil),
				mockEngine.EXPECT().Unmount(gomock.Any()).Return(nil),
				mockEngine.EXPECT().Reset(),
			)
			h.AssertNil(t, p.records.Write("0", []byte(`{"dest":"unit/a","replaced":false}`)))

			h.AssertNil(t, subject.DoMount(ctx, files[:1], "unit"))
			h.AssertNil(t, subject.Cleanup([]string{"0"}))
		})

		it("leaves the session alone when sweeping mounts of an earlier run", func() {
			h.AssertNil(t, p.records.Write("0", []byte(`{"dest":"unit/a","replaced":false}`)))
			mockEngine.EXPECT().Unmount(gomock.Any()).Return(nil)

			h.AssertNil(t, subject.Cleanup([]string{"0"}))
			h.AssertContains(t, p.logs.String(), "preexisting mounts found")
		})
	})

	when("the engine is real", func() {
		var (
			mounter *mount.Mounter
			subject *mount.Coordinator
		)

		it.Before(func() {
			mounter = p.mounter()
			subject = mount.NewCoordinator(mounter, p.ledger, logging.New(p.logs))
		})

		// restart simulates a new process picking up the same project.
		restart := func() {
			p.reopen(t)
			mounter = p.mounter()
			subject = mount.NewCoordinator(mounter, p.ledger, logging.New(p.logs))
		}

		when("a batch fails halfway", func() {
			var server *ghttp.Server

			it.Before(func() {
				server = ghttp.NewServer()
				server.AppendHandlers(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusNotFound)
				})
			})

			it.After(func() {
				server.Close()
			})

			it("leaves the project as it was", func() {
				h.WriteFile(t, p.path("svc/a.env"), "ORIGINAL")
				h.WriteFile(t, p.path("envs/a.env"), "MOUNTED")
				h.WriteFile(t, p.path("envs/c.env"), "MOUNTED")

				err := subject.DoMount(ctx, mount.FileMap{
					{Dest: "a.env", Source: "envs/a.env"},
					{Dest: "b.env", Source: server.URL() + "/b.env"},
					{Dest: "other/c.env", Source: "envs/c.env"},
				}, "svc")
				h.AssertTrue(t, errors.Is(err, mount.ErrDownloadFailed))

				h.AssertFileContents(t, p.path("svc/a.env"), "ORIGINAL")
				h.AssertPathDoesNotExist(t, p.path("svc/b.env"))
				h.AssertPathDoesNotExist(t, p.path("svc/other"))

				h.AssertEq(t, len(p.keys(t)), 0)
				stashed, err := p.stash.List()
				h.AssertNil(t, err)
				h.AssertEq(t, len(stashed), 0)
				h.AssertEq(t, len(mounter.Claimed()), 0)
			})
		})

		when("mounts are cleared by the run that made them", func() {
			it("restores the project without warning", func() {
				h.WriteFile(t, p.path("svc/app.env"), "ORIGINAL")
				h.WriteFile(t, p.path("envs/app.env"), "MOUNTED")
				h.WriteFile(t, p.path("envs/extra.env"), "EXTRA")

				h.AssertNil(t, subject.DoMount(ctx, mount.FileMap{
					{Dest: "app.env", Source: "envs/app.env"},
					{Dest: "extra.env", Source: "envs/extra.env"},
				}, "svc"))
				h.AssertFileContents(t, p.path("svc/app.env"), "MOUNTED")
				h.AssertFileContents(t, p.path("svc/extra.env"), "EXTRA")

				h.AssertNil(t, subject.ClearMounts())

				h.AssertFileContents(t, p.path("svc/app.env"), "ORIGINAL")
				h.AssertPathDoesNotExist(t, p.path("svc/extra.env"))
				h.AssertEq(t, len(p.keys(t)), 0)
				h.AssertEq(t, len(mounter.Claimed()), 0)
				h.AssertNotContains(t, p.logs.String(), "preexisting mounts found")
			})
		})

		when("a previous run left mounts behind", func() {
			it("restores them and warns", func() {
				h.WriteFile(t, p.path("svc/app.env"), "ORIGINAL")
				h.WriteFile(t, p.path("envs/app.env"), "MOUNTED")
				h.AssertNil(t, subject.DoMount(ctx, mount.FileMap{{Dest: "app.env", Source: "envs/app.env"}}, "svc"))

				restart()
				h.AssertNil(t, subject.ClearMounts())

				h.AssertFileContents(t, p.path("svc/app.env"), "ORIGINAL")
				h.AssertEq(t, len(p.keys(t)), 0)
				h.AssertContains(t, p.logs.String(), "preexisting mounts found, recent changes may be lost")
			})

			it("undoes nested mounts newest first", func() {
				h.WriteFile(t, p.path("svc/config/app.env"), "ORIGINAL")
				h.WriteFile(t, p.path("envs/base/app.env"), "BASE")
				h.WriteFile(t, p.path("envs/override.env"), "OVERRIDE")

				h.AssertNil(t, subject.DoMount(ctx, mount.FileMap{{Dest: "config", Source: "envs/base"}}, "svc"))

				restart()
				h.AssertNil(t, subject.DoMount(ctx, mount.FileMap{{Dest: "config/app.env", Source: "envs/override.env"}}, "svc"))
				h.AssertFileContents(t, p.path("svc/config/app.env"), "OVERRIDE")

				restart()
				h.AssertNil(t, subject.ClearMounts())

				h.AssertFileContents(t, p.path("svc/config/app.env"), "ORIGINAL")
				h.AssertEq(t, len(p.keys(t)), 0)
			})

			it("removes a destination whose original never reached the stash", func() {
				h.WriteFile(t, p.path("svc/app.env"), "MOUNTED")
				h.AssertNil(t, p.records.Write("0", []byte(`{"dest":"svc/app.env","replaced":"lost"}`)))

				restart()
				h.AssertNil(t, subject.ClearMounts())

				h.AssertPathDoesNotExist(t, p.path("svc/app.env"))
				h.AssertEq(t, len(p.keys(t)), 0)
				h.AssertContains(t, p.logs.String(), "was never stashed")
			})
		})

		when("the ledger holds an unreadable entry", func() {
			it("restores the rest and reports the bad one", func() {
				h.AssertNil(t, p.records.Write("5", []byte(`{"dest":`)))
				restart()

				h.WriteFile(t, p.path("svc/app.env"), "ORIGINAL")
				h.WriteFile(t, p.path("envs/app.env"), "MOUNTED")
				h.AssertNil(t, subject.DoMount(ctx, mount.FileMap{{Dest: "app.env", Source: "envs/app.env"}}, "svc"))
				h.AssertEq(t, p.keys(t), []string{"6", "5"})

				err := subject.ClearMounts()

				var aggregate *mount.AggregateError
				h.AssertTrue(t, errors.As(err, &aggregate))
				h.AssertEq(t, len(aggregate.Errors), 1)

				h.AssertFileContents(t, p.path("svc/app.env"), "ORIGINAL")
				h.AssertEq(t, p.keys(t), []string{"5"})
			})

			it("forgets the restored destinations so they can be mounted again", func() {
				h.AssertNil(t, p.records.Write("5", []byte(`{"dest":`)))
				restart()

				h.WriteFile(t, p.path("svc/config/app.env"), "ORIGINAL")
				h.WriteFile(t, p.path("envs/base/app.env"), "BASE")
				h.WriteFile(t, p.path("envs/override.env"), "OVERRIDE")

				h.AssertNil(t, subject.DoMount(ctx, mount.FileMap{{Dest: "config", Source: "envs/base"}}, "svc"))
				h.AssertNotNil(t, subject.ClearMounts())
				h.AssertEq(t, len(mounter.Claimed()), 0)
				h.AssertFileContents(t, p.path("svc/config/app.env"), "ORIGINAL")

				h.AssertNil(t, subject.DoMount(ctx, mount.FileMap{{Dest: "config/app.env", Source: "envs/override.env"}}, "svc"))
				h.AssertEq(t, p.keys(t), []string{"7", "5"})
				h.AssertFileContents(t, p.path("svc/config/app.env"), "OVERRIDE")

				h.AssertNotNil(t, subject.ClearMounts())
				h.AssertFileContents(t, p.path("svc/config/app.env"), "ORIGINAL")
				h.AssertEq(t, p.keys(t), []string{"5"})
			})
		})

		when("one mount cannot be undone", func() {
			it("restores the others and keeps the failing entry", func() {
				h.WriteFile(t, p.path("svc/a.env"), "ORIGINAL A")
				h.WriteFile(t, p.path("svc/b.env"), "ORIGINAL B")
				h.WriteFile(t, p.path("envs/a.env"), "MOUNTED A")
				h.WriteFile(t, p.path("envs/b.env"), "MOUNTED B")
				h.AssertNil(t, subject.DoMount(ctx, mount.FileMap{
					{Dest: "a.env", Source: "envs/a.env"},
					{Dest: "b.env", Source: "envs/b.env"},
				}, "svc"))
				h.AssertEq(t, p.keys(t), []string{"1", "0"})

				p.reopen(t)
				mounter = p.mounter(mount.WithFS(failingRestoreFS{OS: fsutil.NewOS(), dest: p.path("svc/b.env")}))
				subject = mount.NewCoordinator(mounter, p.ledger, logging.New(p.logs))

				err := subject.ClearMounts()

				var aggregate *mount.AggregateError
				h.AssertTrue(t, errors.As(err, &aggregate))
				h.AssertEq(t, len(aggregate.Errors), 1)
				h.AssertTrue(t, errors.Is(err, mount.ErrRenameFailed))
				h.AssertTrue(t, errors.Is(err, os.ErrPermission))
				h.AssertContains(t, err.Error(), "undoing mount record 1")

				h.AssertFileContents(t, p.path("svc/a.env"), "ORIGINAL A")
				h.AssertEq(t, p.keys(t), []string{"1"})
				stashed, err := p.stash.List()
				h.AssertNil(t, err)
				h.AssertEq(t, len(stashed), 1)
			})
		})
	})
}
