package studentid_test

import (
	"errors"
	"testing"

	"github.com/okian/idscan/internal/domain/studentid"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParse(t *testing.T) {
	Convey("Given raw decoder text", t, func() {
		Convey("When the text is a lowercase ID", func() {
			id, err := studentid.Parse("scs/12345/23")

			Convey("Then it should normalize and parse", func() {
				So(err, ShouldBeNil)
				So(id.String(), ShouldEqual, "SCS/12345/23")
				So(id.Branch(), ShouldEqual, "CS")
				So(id.Number(), ShouldEqual, "12345")
				So(id.ShortYear(), ShouldEqual, "23")
				So(id.Year(), ShouldEqual, "2023")
				So(id.IsZero(), ShouldBeFalse)
			})
		})

		Convey("When the text has surrounding whitespace", func() {
			id, err := studentid.Parse("  sau/00001/99 \n")

			Convey("Then whitespace should be trimmed", func() {
				So(err, ShouldBeNil)
				So(id.String(), ShouldEqual, "SAU/00001/99")
				So(id.Year(), ShouldEqual, "2099")
			})
		})

		Convey("When every known branch is used", func() {
			Convey("Then each should parse", func() {
				for _, code := range studentid.Branches() {
					id, err := studentid.Parse("S" + code + "/54321/20")
					So(err, ShouldBeNil)
					So(id.Branch(), ShouldEqual, code)
				}
			})
		})

		Convey("When the input is malformed", func() {
			cases := []string{
				"",
				"   ",
				"SXX/12345/23",   // unknown branch
				"SCS/1234/23",    // 4 digits
				"SCS/123456/23",  // 6 digits
				"SCS/12345/2",    // 1-digit year
				"SCS/12345/234",  // 3-digit year
				"XCS/12345/23",   // wrong prefix
				"CS/12345/23",    // missing prefix
				"SCS-12345-23",   // wrong separator
				"SCS/12345/23/1", // trailing segment
				" scs12/12345/23 ",
				"SCS/12A45/23",
			}

			Convey("Then each should fail with ErrInvalidFormat", func() {
				for _, raw := range cases {
					id, err := studentid.Parse(raw)
					So(err, ShouldNotBeNil)
					So(errors.Is(err, studentid.ErrInvalidFormat), ShouldBeTrue)
					So(id.IsZero(), ShouldBeTrue)
					So(studentid.Valid(raw), ShouldBeFalse)
				}
			})
		})
	})
}

func TestBranchesIsACopy(t *testing.T) {
	Convey("Given the branch list", t, func() {
		b := studentid.Branches()
		So(b, ShouldHaveLength, 10)

		Convey("When the caller mutates it", func() {
			b[0] = "ZZ"

			Convey("Then validation should be unaffected", func() {
				So(studentid.Valid("SAU/12345/23"), ShouldBeTrue)
				So(studentid.Valid("SZZ/12345/23"), ShouldBeFalse)
			})
		})
	})
}
