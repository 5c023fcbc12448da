package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/thoughtstream/pkg/dotdir"
)

var _ = Describe("Manager", func() {
	var (
		tmpDir string
		m      *dotdir.Manager
	)

	// chdir moves into dir for the rest of the test.
	chdir := func(dir string) {
		orig, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(dir)).To(Succeed())
		DeferCleanup(func() { _ = os.Chdir(orig) })
	}

	BeforeEach(func() {
		var err error
		// Resolve symlinks so paths match filepath.Abs results
		// (e.g. on macOS /var -> /private/var).
		tmpDir, err = filepath.EvalSymlinks(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		GinkgoT().Setenv(dotdir.HomeEnv, "")
		m = dotdir.NewManager()
	})

	Describe("Target", func() {
		It("creates the override directory", func() {
			dir := filepath.Join(tmpDir, "newdir")
			result, err := m.Target(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(dir))
			Expect(dir).To(BeADirectory())
		})

		It("prefers the override over a local .thoughtstream dir", func() {
			Expect(os.Mkdir(filepath.Join(tmpDir, ".thoughtstream"), 0o755)).To(Succeed())
			chdir(tmpDir)

			override := filepath.Join(tmpDir, "override")
			Expect(m.Target(override)).To(Equal(override))
		})

		It("uses THOUGHTSTREAM_HOME before discovery", func() {
			Expect(os.Mkdir(filepath.Join(tmpDir, ".thoughtstream"), 0o755)).To(Succeed())
			chdir(tmpDir)

			home := filepath.Join(tmpDir, "env-home")
			GinkgoT().Setenv(dotdir.HomeEnv, home)
			Expect(m.Target("")).To(Equal(home))
		})

		It("finds an existing local .thoughtstream dir", func() {
			local := filepath.Join(tmpDir, ".thoughtstream")
			Expect(os.Mkdir(local, 0o755)).To(Succeed())
			chdir(tmpDir)

			Expect(m.Target("")).To(Equal(local))
		})

		It("falls back to and creates ~/.thoughtstream", func() {
			work := filepath.Join(tmpDir, "work")
			Expect(os.Mkdir(work, 0o755)).To(Succeed())
			chdir(work)
			GinkgoT().Setenv("HOME", tmpDir)

			home := filepath.Join(tmpDir, ".thoughtstream")
			Expect(m.Target("")).To(Equal(home))
			Expect(home).To(BeADirectory())
		})
	})

	It("joins file names onto the target", func() {
		Expect(m.Path(tmpDir, "config.toml")).To(Equal(filepath.Join(tmpDir, "config.toml")))
	})
})

var _ = Describe("TOML files", func() {
	type doc struct {
		Name  string   `toml:"name"`
		Items []string `toml:"items"`
	}

	var path string

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "doc.toml")
	})

	It("reports a missing file without error", func() {
		d := doc{Name: "kept"}
		found, err := dotdir.ReadTOML(path, &d)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeFalse())
		Expect(d.Name).To(Equal("kept"))
	})

	It("round-trips with owner-only permissions", func() {
		Expect(dotdir.WriteTOML(path, doc{Name: "a", Items: []string{"x", "y"}})).To(Succeed())

		info, err := os.Stat(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))

		var d doc
		found, err := dotdir.ReadTOML(path, &d)
		Expect(err).NotTo(HaveOccurred())
		Expect(found).To(BeTrue())
		Expect(d).To(Equal(doc{Name: "a", Items: []string{"x", "y"}}))
	})

	It("names the file in parse errors", func() {
		Expect(os.WriteFile(path, []byte("name = [[["), 0o600)).To(Succeed())
		_, err := dotdir.ReadTOML(path, &doc{})
		Expect(err).To(MatchError(ContainSubstring("parsing doc.toml")))
	})
})
