package domain

import (
	"strconv"
	"time"

	"datingapp/modules/clock"
	"datingapp/modules/paging"

	"github.com/gofrs/uuid/v5"
)

type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

func (g Gender) Valid() bool { return g == Male || g == Female }

// Opposite is the default browse filter for a member of gender g.
func (g Gender) Opposite() Gender {
	if g == Male {
		return Female
	}
	return Male
}

type OrderBy string

const (
	OrderByLastActive OrderBy = "lastActive"
	OrderByCreated    OrderBy = "created"
)

const (
	DefaultMinAge = 18
	DefaultMaxAge = 150
)

type (
	Application struct {
		reader MemberReadStore
		writer MemberWriteStore
		cache  MemberCache
		images ImageStore
		clock  clock.Clock
	}

	Member struct {
		ID           uuid.UUID
		Username     string
		KnownAs      string
		Gender       Gender
		DateOfBirth  time.Time
		Age          int
		Created      time.Time
		LastActive   time.Time
		Introduction string
		LookingFor   string
		Interests    string
		City         string
		Country      string
		PhotoURL     string
		Photos       []Photo
		Roles        []string

		Version int64
	}

	Photo struct {
		ID         uuid.UUID
		MemberID   uuid.UUID
		URL        string
		PublicID   string
		IsMain     bool
		IsApproved bool
		Created    time.Time
	}

	PhotoForApproval struct {
		ID         uuid.UUID
		URL        string
		IsApproved bool
		Username   string
	}

	// MemberParams is the browse request as sent by the caller. Zero values
	// are replaced by defaults in GetMembers.
	MemberParams struct {
		CurrentUsername string
		Gender          Gender
		MinAge          int
		MaxAge          int
		OrderBy         OrderBy
		Paging          paging.Params
	}

	// MemberQuery is MemberParams resolved against the clock and the caller.
	MemberQuery struct {
		ExcludeUsername string
		Gender          Gender
		DobAfter        time.Time // exclusive
		DobOnOrBefore   time.Time // inclusive
		OrderBy         OrderBy
		Paging          paging.Params
	}

	ProfileFields struct {
		Introduction string
		LookingFor   string
		Interests    string
		City         string
		Country      string
	}

	// UpdateMemberParams replaces every profile field. Version 0 skips the
	// concurrency check.
	UpdateMemberParams struct {
		Username string
		Version  int64
		Fields   ProfileFields
	}

	// PatchField is a tri-state: untouched, cleared, or set to Value.
	PatchField struct {
		Set   bool
		Null  bool
		Value string
	}

	MemberPatch struct {
		Username     string
		Version      int64
		Introduction PatchField
		LookingFor   PatchField
		Interests    PatchField
		City         PatchField
		Country      PatchField
	}

	NewPhoto struct {
		ID       uuid.UUID
		MemberID uuid.UUID
		URL      string
		PublicID string
		IsMain   bool
	}
)

func (m *Member) V() string {
	return strconv.FormatInt(m.Version, 10)
}

func (p *MemberPatch) Empty() bool {
	return !p.Introduction.Set && !p.LookingFor.Set && !p.Interests.Set && !p.City.Set && !p.Country.Set
}

// AgeAt returns full years between dob and now, one less when the birthday
// has not come yet this year.
func AgeAt(dob, now time.Time) int {
	if dob.IsZero() {
		return 0
	}
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return max(age, 0)
}

// DateOfBirthWindow turns an age range into birth dates: members born after
// the first and on or before the second are between minAge and maxAge.
func DateOfBirthWindow(now time.Time, minAge, maxAge int) (after, onOrBefore time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(-(maxAge + 1), 0, 0), today.AddDate(-minAge, 0, 0)
}
