package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("create post: %w", ErrInvalidContentType.WithField("type"))
	assert.True(t, errors.Is(err, ErrInvalidContentType))
	assert.False(t, errors.Is(err, ErrSelfFollow))
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestErrorFault(t *testing.T) {
	tests := []struct {
		name  string
		err   *Error
		kind  string
		fault bool
	}{
		{"sold out", ErrSoldOut, "sold_out", false},
		{"validation", Validation("text", "required"), "validation", false},
		{"authorization", ErrNotClubAdmin, "authorization", false},
		{"infrastructure", Infrastructure("insert ticket", errors.New("conn reset")), "infrastructure", true},
		{"unclassified", &Error{Code: "X"}, "unknown", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.err.ErrorKind())
			assert.Equal(t, tt.fault, tt.err.Fault())
		})
	}
}

func TestInfrastructureUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := Infrastructure("insert post", cause)
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsKind(err, KindInfrastructure))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestMatchOwner(t *testing.T) {
	onUser := func(id string) (string, error) { return "user " + id, nil }
	onClub := func(id string) (string, error) { return "club " + id, nil }

	got, err := MatchOwner(UserOwner("p1"), onUser, onClub)
	require.NoError(t, err)
	assert.Equal(t, "user p1", got)

	got, err = MatchOwner(ClubOwner("c1"), onUser, onClub)
	require.NoError(t, err)
	assert.Equal(t, "club c1", got)

	_, err = MatchOwner(Owner{Kind: "group", ID: "x"}, onUser, onClub)
	assert.True(t, IsKind(err, KindValidation))
}

func TestParseContentType(t *testing.T) {
	tests := []struct {
		in      string
		want    ContentType
		wantErr bool
	}{
		{"text", ContentText, false},
		{" Image ", ContentImage, false},
		{"promo", ContentPromo, false},
		{"poll", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseContentType(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidContentType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidatePayload(t *testing.T) {
	user := UserOwner("p1")
	club := ClubOwner("cp1")

	tests := []struct {
		name    string
		owner   Owner
		ct      ContentType
		payload PostPayload
		wantErr error
		field   string
	}{
		{name: "text post", owner: user, ct: ContentText, payload: PostPayload{Text: "hello"}},
		{name: "empty text", owner: user, ct: ContentText, field: "text"},
		{name: "image without media", owner: user, ct: ContentImage, payload: PostPayload{Text: "x"}, field: "media"},
		{name: "image with media", owner: user, ct: ContentImage, payload: PostPayload{Media: []string{"/media/a.jpg"}}},
		{name: "promo by user", owner: user, ct: ContentPromo, payload: PostPayload{Text: "2x1"}, wantErr: ErrInvalidContentType},
		{name: "promo by club", owner: club, ct: ContentPromo, payload: PostPayload{Text: "2x1"}},
		{name: "unknown type", owner: club, ct: ContentType("poll"), wantErr: ErrInvalidContentType},
		{name: "missing owner id", owner: Owner{Kind: OwnerUser}, ct: ContentText, payload: PostPayload{Text: "x"}, field: "owner.id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePayload(tt.owner, tt.ct, tt.payload)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.field != "":
				var de *Error
				require.ErrorAs(t, err, &de)
				assert.Equal(t, tt.field, de.Field)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFollow(t *testing.T) {
	assert.ErrorIs(t, ValidateFollow("p1", UserOwner("p1")), ErrSelfFollow)
	assert.NoError(t, ValidateFollow("p1", UserOwner("p2")))
	assert.NoError(t, ValidateFollow("p1", ClubOwner("p1")))
	assert.True(t, IsKind(ValidateFollow("", UserOwner("p2")), KindValidation))
}

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Techno", "techno"},
		{"  #RoofTop ", "rooftop"},
		{"ÇALIENTE", "çaliente"},
		{"ΣΑΛΣΑ", "σαλσα"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeTag(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NormalizeTag("  # ")
	assert.True(t, IsKind(err, KindValidation))
}

func TestBuildCommentTree(t *testing.T) {
	root := "c1"
	flat := []*Comment{
		{ID: "c1", PostID: "p"},
		{ID: "c2", PostID: "p", ParentID: &root},
		{ID: "c3", PostID: "p"},
	}
	tree := BuildCommentTree(flat)
	require.Len(t, tree, 2)
	assert.Equal(t, "c1", tree[0].ID)
	require.Len(t, tree[0].Replies, 1)
	assert.Equal(t, "c2", tree[0].Replies[0].ID)
}

func TestProfileAge(t *testing.T) {
	dob := time.Date(2000, time.June, 15, 0, 0, 0, 0, time.UTC)
	p := &Profile{DateOfBirth: &dob}

	assert.Equal(t, 23, *p.Age(time.Date(2024, time.June, 14, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, 24, *p.Age(time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)))
	assert.Nil(t, (&Profile{}).Age(time.Now()))
	assert.Equal(t, DefaultProfilePicURL, p.ProfilePic())
}

func TestVIPSubscriptionIsActive(t *testing.T) {
	sub := &VIPSubscription{EndDate: time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)}
	assert.True(t, sub.IsActive(time.Date(2024, time.March, 10, 23, 0, 0, 0, time.UTC)))
	assert.False(t, sub.IsActive(time.Date(2024, time.March, 11, 0, 1, 0, 0, time.UTC)))
}

func TestTicketCheckRedeemable(t *testing.T) {
	now := time.Now()
	tk := &Ticket{ValidUntil: now.Add(time.Hour)}
	assert.NoError(t, tk.CheckRedeemable(now))
	assert.ErrorIs(t, tk.CheckRedeemable(now.Add(2*time.Hour)), ErrTicketNotValidNow)

	tk.RedeemedAt = &now
	assert.ErrorIs(t, tk.CheckRedeemable(now), ErrAlreadyRedeemed)
}

func TestPurchaseRequestPriceMismatch(t *testing.T) {
	ev := &Event{Price: decimal.RequireFromString("25.00")}
	req := &PurchaseRequest{ProfileID: "p1", Price: decimal.RequireFromString("25")}
	assert.NoError(t, req.Validate(ev))

	req.Price = decimal.RequireFromString("20")
	assert.ErrorIs(t, req.Validate(ev), ErrPriceMismatch)
}

func TestMediaUploadValidate(t *testing.T) {
	ok := &MediaUpload{Filename: "a.JPG", Kind: MediaImages, Category: CategoryPosts, Data: []byte{1}}
	assert.NoError(t, ok.Validate(0))

	wrongCat := &MediaUpload{Filename: "a.jpg", Kind: MediaImages, Category: CategoryAudios, Data: []byte{1}}
	assert.True(t, IsKind(wrongCat.Validate(0), KindValidation))

	wrongExt := &MediaUpload{Filename: "a.mp4", Kind: MediaImages, Category: CategoryPosts, Data: []byte{1}}
	assert.True(t, IsKind(wrongExt.Validate(0), KindValidation))

	tooBig := &MediaUpload{Filename: "a.png", Kind: MediaImages, Category: CategoryPosts, Data: make([]byte, 10)}
	assert.True(t, IsKind(tooBig.Validate(5), KindValidation))
}
