package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/d60-Lab/bcc-marketplace/internal/model"
)

var defaultCategories = []model.Category{
	{ID: model.CategoryAll, Name: "All Resources", Icon: "🛒"},
	{ID: "lesson-kits", Name: "Lesson Kits", Icon: "🎒"},
	{ID: "family-devotions", Name: "Family Devotions", Icon: "🏡"},
	{ID: "worship", Name: "Worship & Music", Icon: "🎵"},
	{ID: "crafts", Name: "Creative Crafts", Icon: "🎨"},
	{ID: "seasonal", Name: "Seasonal Specials", Icon: "✨"},
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var defaultProducts = []model.Product{
	{
		ID: "advent-story-kit", Name: "Advent Storytelling Kit", Category: "seasonal", Price: price("34.00"), Rank: 1,
		Description: "Includes 4 weeks of family devotions, ornament crafts, and candle lighting prompts.",
		Summary:     "Four-week family journey with printable ornaments.",
	},
	{
		ID: "faith-family-box", Name: "Faith at Home Family Box", Category: "family-devotions", Price: price("48.00"), Rank: 2,
		Description: "Monthly box with table talk cards, scripture posters, and faith-building games.",
		Summary:     "Keeps discipleship simple for busy families.",
	},
	{
		ID: "praise-card-pack", Name: "Kids Praise Card Pack", Category: "worship", Price: price("12.50"), Rank: 3,
		Description: "20 illustrated cards with motion cues and memory verses for worship time.",
		Summary:     "Perfect for small group worship warm-ups.",
	},
	{
		ID: "craft-celebration-bundle", Name: "Celebration Craft Bundle", Category: "crafts", Price: price("27.00"), Rank: 4,
		Description: "Bulk pack of 10 themed crafts with templates and supply lists for class use.",
		Summary:     "Ready-to-go crafts for your entire classroom.",
	},
	{
		ID: "memory-verse-poster-set", Name: "Memory Verse Poster Set", Category: "lesson-kits", Price: price("22.00"), Rank: 5,
		Description: "Set of 12 laminated posters with monthly themes and discussion prompts.",
		Summary:     "Bright visuals for classrooms and hallways.",
	},
	{
		ID: "worship-playlist-bundle", Name: "Worship Playlist + Motions Bundle", Category: "worship", Price: price("18.00"), Rank: 6,
		Description: "Downloadable MP3s, lyric slides, and motion tutorial videos for 8 upbeat songs.",
		Summary:     "Instant energy for large group sessions.",
	},
	{
		ID: "weekend-lesson-kit", Name: "Weekend Lesson Kit: Acts & Adventure", Category: "lesson-kits", Price: price("39.00"), Rank: 7,
		Description: "Complete weekend plan with scripts, slides, small group guides, and parent handouts.",
		Summary:     "One download covers large group and small group.",
	},
	{
		ID: "milestone-celebration-set", Name: "Milestone Celebration Set", Category: "seasonal", Price: price("42.00"), Rank: 8,
		Description: "Baptism and child dedication celebration guide with certificates, banners, and gifts.",
		Summary:     "Helps families mark spiritual milestones together.",
	},
	{
		ID: "leader-starter-pack", Name: "Small Group Leader Starter Pack", Category: "family-devotions", Price: price("69.00"), Rank: 9,
		Description: "Training workbook, coaching videos, and first-month supplies for new volunteers.",
		Summary:     "Everything new leaders need for confident starts.",
	},
}

// Default is the marketplace catalog shipped with the site.
func Default() *Catalog {
	c, err := New(defaultCategories, defaultProducts)
	if err != nil {
		panic(err)
	}
	return c
}
