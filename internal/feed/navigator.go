// SPDX-License-Identifier: MIT

// Package feed chains data-load and parser recipes into a browsable
// container tree, as described by a navigator document.
package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/tailscale/hujson"

	"github.com/ManuGH/recipefeed/internal/dynparser"
	"github.com/ManuGH/recipefeed/internal/recipe"
)

var (
	// ErrInvalidNavigator is returned when the navigator document cannot be
	// decoded or references recipes that cannot be loaded.
	ErrInvalidNavigator = errors.New("invalid navigator document")
	// ErrIndexOutOfRange is returned for recipe indices the navigator does
	// not define.
	ErrIndexOutOfRange = errors.New("recipe index out of range")
)

// RecipePair names the data-load and parser recipe files of one stage. The
// referenced recipes are resolved by LoadNavigator.
type RecipePair struct {
	// Name, when set on a categories stage, replaces the categories recipes
	// with a single hard-coded category.
	Name          string `json:"name,omitempty"`
	DataLoader    string `json:"dataLoader,omitempty"`
	DynamicParser string `json:"dynamicParser,omitempty"`

	DataLoaderRecipe    *recipe.Recipe `json:"-"`
	DynamicParserRecipe *recipe.Recipe `json:"-"`
}

// RecipeConfig carries per-feed settings forwarded to the parser recipes.
type RecipeConfig struct {
	LiveContent bool `json:"liveContent"`
}

// GlobalRecipes describes one feed: how to load its categories and the
// contents of each category.
type GlobalRecipes struct {
	Categories   RecipePair    `json:"categories"`
	Contents     RecipePair    `json:"contents"`
	RecipeConfig *RecipeConfig `json:"recipeConfig,omitempty"`
}

// RecommendationRecipes describes a feed of recommended content ids.
type RecommendationRecipes struct {
	Contents RecipePair `json:"contents"`
}

// Config holds the navigator's non-visual settings.
type Config struct {
	ShowRelatedContent                 bool   `json:"showRelatedContent"`
	UseCategoryAsDefaultRelatedContent bool   `json:"useCategoryAsDefaultRelatedContent"`
	SearchAlgo                         string `json:"searchAlgo,omitempty"`
	// Negative values mean unlimited.
	NumberOfGlobalRecommendations  int `json:"numberOfGlobalRecommendations"`
	NumberOfRelatedRecommendations int `json:"numberOfRelatedRecommendations"`
}

// Navigator is the decoded navigator document.
type Navigator struct {
	Config                Config                  `json:"config"`
	GlobalRecipes         []GlobalRecipes         `json:"globalRecipes"`
	RecommendationRecipes []RecommendationRecipes `json:"recommendationRecipes"`
}

// ParseNavigator decodes a navigator document without resolving its
// recipe references. Comments and trailing commas are allowed.
func ParseNavigator(doc []byte) (*Navigator, error) {
	nav := &Navigator{Config: Config{
		NumberOfGlobalRecommendations:  -1,
		NumberOfRelatedRecommendations: -1,
	}}
	clean, err := hujson.Standardize(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNavigator, err)
	}
	if err := json.Unmarshal(clean, nav); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNavigator, err)
	}
	return nav, nil
}

// LoadNavigator reads the navigator document at p from assets and loads
// every recipe it references from the same tree. Categories recipes are
// skipped for feeds with a hard-coded category name.
func LoadNavigator(assets fs.FS, p string) (*Navigator, error) {
	doc, err := fs.ReadFile(assets, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNavigator, err)
	}
	nav, err := ParseNavigator(doc)
	if err != nil {
		return nil, err
	}
	for i := range nav.GlobalRecipes {
		g := &nav.GlobalRecipes[i]
		if g.Categories.Name == "" {
			if err := g.Categories.resolve(assets); err != nil {
				return nil, fmt.Errorf("global recipe %d categories: %w", i, err)
			}
		}
		if err := g.Contents.resolve(assets); err != nil {
			return nil, fmt.Errorf("global recipe %d contents: %w", i, err)
		}
	}
	for i := range nav.RecommendationRecipes {
		if err := nav.RecommendationRecipes[i].Contents.resolve(assets); err != nil {
			return nil, fmt.Errorf("recommendation recipe %d: %w", i, err)
		}
	}
	return nav, nil
}

func (p *RecipePair) resolve(assets fs.FS) error {
	if p.DataLoader == "" || p.DynamicParser == "" {
		return fmt.Errorf("%w: dataLoader and dynamicParser are required", ErrInvalidNavigator)
	}
	var err error
	if p.DataLoaderRecipe, err = recipe.Load(assets, p.DataLoader); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNavigator, err)
	}
	if p.DynamicParserRecipe, err = recipe.Load(assets, p.DynamicParser); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNavigator, err)
	}
	if err := dynparser.ValidateRecipe(p.DynamicParserRecipe); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNavigator, err)
	}
	return nil
}
