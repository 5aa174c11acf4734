package migrations_test

import (
	"io/fs"
	"testing/fstest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/yigit/workshophub/internal/app/migrations"
)

var _ = Describe("Migrations", func() {
	It("extracts the version prefix", func() {
		Expect(migrations.Version("001_init.sql")).To(Equal("001"))
		Expect(migrations.Version("sql/010_add_index.sql")).To(Equal("010"))
	})

	It("sorts sql files and skips everything else", func() {
		fsys := fstest.MapFS{
			"002_votes.sql": {Data: []byte("select 1;")},
			"001_init.sql":  {Data: []byte("select 1;")},
			"README.md":     {Data: []byte("docs")},
			"old/003.sql":   {Data: []byte("select 1;")},
		}
		files, err := migrations.SortedFiles(fsys)
		Expect(err).ToNot(HaveOccurred())
		Expect(files).To(Equal([]string{"001_init.sql", "002_votes.sql"}))
	})

	It("embeds the schema with the unique constraints the repositories rely on", func() {
		content, err := fs.ReadFile(migrations.Files(), "001_init.sql")
		Expect(err).ToNot(HaveOccurred())
		Expect(string(content)).To(ContainSubstring("users_username_key"))
		Expect(string(content)).To(ContainSubstring("student_votes_student_workshop_key UNIQUE (student_id, workshop_id)"))
	})
})
