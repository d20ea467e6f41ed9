package source

import (
	"time"

	"porschevents/internal/model"
)

const (
	imgCoastal = "https://images.unsplash.com/photo-1503376780353-7e6692767b70?w=800&h=600&fit=crop"
	imgClassic = "https://images.unsplash.com/photo-1552519507-da3b142c6e3d?w=800&h=600&fit=crop"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// FixtureUsers returns the three demo members, without password hashes.
func FixtureUsers() []model.User {
	return []model.User{
		{
			ID:              "1",
			Email:           "john.doe@example.com",
			FirstName:       "John",
			LastName:        "Doe",
			ProfileImageURL: "https://images.unsplash.com/photo-1472099645785-5658abf4ff4e?w=150&h=150&fit=crop&crop=face",
			Bio:             "Porsche enthusiast since 2010. Owner of a 911 Carrera S and 718 Cayman.",
			Location:        "Los Angeles, CA",
			Preferences: model.Preferences{
				FavoriteModels: []string{"911", "718", "Cayenne"},
				Notifications:  model.Notifications{Email: true, Push: true},
				LocationRadius: 50,
			},
			IsVerified: true,
			CreatedAt:  ts("2024-01-15T10:00:00Z"),
			UpdatedAt:  ts("2024-01-15T10:00:00Z"),
		},
		{
			ID:              "2",
			Email:           "sarah.smith@example.com",
			FirstName:       "Sarah",
			LastName:        "Smith",
			ProfileImageURL: "https://images.unsplash.com/photo-1494790108755-2616b612b786?w=150&h=150&fit=crop&crop=face",
			Bio:             "Vintage Porsche collector and restorer. Specializing in 356 models.",
			Location:        "San Francisco, CA",
			Preferences: model.Preferences{
				FavoriteModels: []string{"356", "911", "912"},
				Notifications:  model.Notifications{Email: true, Push: false},
				LocationRadius: 100,
			},
			IsVerified: true,
			IsAdmin:    true,
			CreatedAt:  ts("2024-01-10T14:30:00Z"),
			UpdatedAt:  ts("2024-01-10T14:30:00Z"),
		},
		{
			ID:              "3",
			Email:           "mike.wilson@example.com",
			FirstName:       "Mike",
			LastName:        "Wilson",
			ProfileImageURL: "https://images.unsplash.com/photo-1507003211169-0a1dd7228f2d?w=150&h=150&fit=crop&crop=face",
			Bio:             "Track day enthusiast and Porsche Club member.",
			Location:        "Miami, FL",
			Preferences: model.Preferences{
				FavoriteModels: []string{"911 GT3", "718 GT4", "Cayman"},
				Notifications:  model.Notifications{Email: false, Push: true},
				LocationRadius: 75,
			},
			IsVerified: true,
			CreatedAt:  ts("2024-01-20T09:15:00Z"),
			UpdatedAt:  ts("2024-01-20T09:15:00Z"),
		},
	}
}

// FixtureEvents returns the six demo events in catalogue order.
func FixtureEvents() []model.Event {
	return []model.Event{
		{
			ID:               "1",
			Title:            "Porsche 911 Meet & Greet",
			Description:      "Join fellow Porsche enthusiasts for a casual meet and greet. All 911 models welcome! Show off your ride, share stories, and connect with the community.",
			Location:         "Santa Monica Pier, Los Angeles, CA",
			Latitude:         model.Ptr(34.0195),
			Longitude:        model.Ptr(-118.4912),
			StartDate:        ts("2024-02-15T18:00:00Z"),
			EndDate:          ts("2024-02-15T21:00:00Z"),
			Category:         model.CategoryMeet,
			EventType:        model.EventTypePorscheOnly,
			OrganizerID:      "1",
			MaxAttendees:     model.Ptr(50),
			CurrentAttendees: 23,
			IsFree:           true,
			ImageURLs:        []string{imgCoastal, imgClassic},
			Tags:             []string{"911", "meet", "social", "los-angeles"},
			Status:           model.StatusActive,
			CreatedAt:        ts("2024-01-25T12:00:00Z"),
			UpdatedAt:        ts("2024-01-25T12:00:00Z"),
		},
		{
			ID:               "2",
			Title:            "Vintage Porsche Show 2024",
			Description:      "Annual vintage Porsche show featuring classic models from the 356 to early 911s. Awards, food, and live music. Pre-1975 models only.",
			Location:         "Golden Gate Park, San Francisco, CA",
			Latitude:         model.Ptr(37.7694),
			Longitude:        model.Ptr(-122.4862),
			StartDate:        ts("2024-03-10T10:00:00Z"),
			EndDate:          ts("2024-03-10T17:00:00Z"),
			Category:         model.CategoryCarShow,
			EventType:        model.EventTypeVintage,
			OrganizerID:      "2",
			MaxAttendees:     model.Ptr(200),
			CurrentAttendees: 156,
			TicketPrice:      model.Ptr(25.00),
			ImageURLs:        []string{imgClassic, imgCoastal},
			Tags:             []string{"vintage", "356", "911", "classic", "awards"},
			Status:           model.StatusActive,
			CreatedAt:        ts("2024-01-15T15:30:00Z"),
			UpdatedAt:        ts("2024-01-15T15:30:00Z"),
		},
		{
			ID:               "3",
			Title:            "Track Day - Porsche Only",
			Description:      "Exclusive track day for Porsche owners. Professional instruction available. Helmets required. Limited to 30 participants.",
			Location:         "Laguna Seca Raceway, Monterey, CA",
			Latitude:         model.Ptr(36.5844),
			Longitude:        model.Ptr(-121.7539),
			StartDate:        ts("2024-02-28T08:00:00Z"),
			EndDate:          ts("2024-02-28T17:00:00Z"),
			Category:         model.CategoryTrackDay,
			EventType:        model.EventTypeRacing,
			OrganizerID:      "3",
			MaxAttendees:     model.Ptr(30),
			CurrentAttendees: 28,
			TicketPrice:      model.Ptr(350.00),
			ImageURLs:        []string{imgClassic, imgCoastal},
			Tags:             []string{"track", "racing", "instruction", "laguna-seca"},
			Status:           model.StatusActive,
			CreatedAt:        ts("2024-01-20T10:45:00Z"),
			UpdatedAt:        ts("2024-01-20T10:45:00Z"),
		},
		{
			ID:               "4",
			Title:            "Porsche Cars & Coffee",
			Description:      "Monthly Cars & Coffee meetup for Porsche enthusiasts. Coffee, donuts, and great cars. All Porsche models welcome.",
			Location:         "The Grove, Los Angeles, CA",
			Latitude:         model.Ptr(34.0722),
			Longitude:        model.Ptr(-118.3587),
			StartDate:        ts("2024-02-03T07:00:00Z"),
			EndDate:          ts("2024-02-03T10:00:00Z"),
			Category:         model.CategoryMeet,
			EventType:        model.EventTypeSocial,
			OrganizerID:      "1",
			MaxAttendees:     model.Ptr(100),
			CurrentAttendees: 67,
			IsFree:           true,
			ImageURLs:        []string{imgCoastal},
			Tags:             []string{"cars-and-coffee", "social", "monthly", "the-grove"},
			Status:           model.StatusActive,
			CreatedAt:        ts("2024-01-22T16:20:00Z"),
			UpdatedAt:        ts("2024-01-22T16:20:00Z"),
		},
		{
			ID:               "5",
			Title:            "Porsche Auction - Rare Models",
			Description:      "Auction featuring rare and collectible Porsche models. Preview day available. Registration required for bidding.",
			Location:         "Petersen Automotive Museum, Los Angeles, CA",
			Latitude:         model.Ptr(34.0624),
			Longitude:        model.Ptr(-118.3614),
			StartDate:        ts("2024-03-20T14:00:00Z"),
			EndDate:          ts("2024-03-20T20:00:00Z"),
			Category:         model.CategoryAuction,
			EventType:        model.EventTypeVintage,
			OrganizerID:      "2",
			MaxAttendees:     model.Ptr(150),
			CurrentAttendees: 89,
			TicketPrice:      model.Ptr(50.00),
			ImageURLs:        []string{imgClassic, imgCoastal},
			Tags:             []string{"auction", "rare", "collectible", "petersen-museum"},
			Status:           model.StatusActive,
			CreatedAt:        ts("2024-01-18T11:15:00Z"),
			UpdatedAt:        ts("2024-01-18T11:15:00Z"),
		},
		{
			ID:               "6",
			Title:            "Porsche Rally - Pacific Coast",
			Description:      "3-day rally along the Pacific Coast Highway. Scenic routes, overnight stops, and group activities. All Porsche models welcome.",
			Location:         "San Francisco to Los Angeles, CA",
			Latitude:         model.Ptr(36.7783),
			Longitude:        model.Ptr(-119.4179),
			StartDate:        ts("2024-04-15T08:00:00Z"),
			EndDate:          ts("2024-04-17T18:00:00Z"),
			Category:         model.CategoryRally,
			EventType:        model.EventTypeMixedBrands,
			OrganizerID:      "3",
			MaxAttendees:     model.Ptr(40),
			CurrentAttendees: 31,
			TicketPrice:      model.Ptr(200.00),
			ImageURLs:        []string{imgCoastal, imgClassic},
			Tags:             []string{"rally", "pacific-coast", "multi-day", "scenic"},
			Status:           model.StatusActive,
			CreatedAt:        ts("2024-01-12T13:45:00Z"),
			UpdatedAt:        ts("2024-01-12T13:45:00Z"),
		},
	}
}
