package rest

import (
	"datingapp/core/member/domain"
	"datingapp/modules/api/dto"
)

func MemberDTO(m domain.Member) dto.Member {
	out := dto.Member{
		ID:           m.ID,
		Username:     m.Username,
		PhotoURL:     m.PhotoURL,
		Age:          m.Age,
		KnownAs:      m.KnownAs,
		Gender:       string(m.Gender),
		Created:      m.Created,
		LastActive:   m.LastActive,
		Introduction: m.Introduction,
		LookingFor:   m.LookingFor,
		Interests:    m.Interests,
		City:         m.City,
		Country:      m.Country,
	}
	if len(m.Photos) > 0 {
		out.Photos = PhotoDTOs(m.Photos)
	}
	return out
}

func PhotoDTO(p domain.Photo) dto.Photo {
	return dto.Photo{ID: p.ID, URL: p.URL, IsMain: p.IsMain, IsApproved: p.IsApproved}
}

func PhotoDTOs(photos []domain.Photo) []dto.Photo {
	out := make([]dto.Photo, len(photos))
	for i, p := range photos {
		out[i] = PhotoDTO(p)
	}
	return out
}

func photoForApprovalDTO(p domain.PhotoForApproval) dto.PhotoForApproval {
	return dto.PhotoForApproval{ID: p.ID, URL: p.URL, Username: p.Username, IsApproved: p.IsApproved}
}
