package phrases

import "math/rand"

// Flat lookup tables for canned responses. Selection is uniform; callers
// that need determinism swap the picker.

var greetings = []string{
	"Fresh meat. Welcome.",
	"A new soul wanders in. Keep it close, we collect those.",
	"Greetings, mortal. Don't linger.",
	"Another volunteer for our amusement. Excellent.",
	"Welcome. We promise nothing but sarcasm.",
	"Entry accepted. Your dignity stays at the door.",
	"Oh good, an audience. Sit by the fire.",
	"Hello there. You're already on the list.",
}

var farewells = []string{
	"Gone? We barely noticed the difference.",
	"Farewell, hero of your own drama.",
	"Leaving is also a contribution. Goodbye.",
	"One less witness. Carry your guilt carefully.",
	"Vanishing accepted. Return if you dare.",
	"Goodbye. We needed victims, not spectators.",
	"Off you go. The silence improves already.",
	"So long. May your luck stay crooked.",
}

var roasts = []string{
	"You're like free Wi-Fi: nobody trusts you, everyone uses you.",
	"Your intellect raises questions even search engines can't answer.",
	"If sarcasm were currency you'd still be broke.",
	"You're proof evolution occasionally backtracks.",
	"You're like an ad: intrusive and useless.",
	"You look like somebody's bad life decision.",
	"You have a rare talent for ruining air with words.",
	"You're like a captcha: nobody wants to spend time on you.",
	"Your contribution to conversation is spam with extra steps.",
	"Your charisma is a light switch, permanently off.",
	"You're like a stale meme: not funny anymore.",
	"You're a bug with no possible fix.",
	"You're a console error in a GUI world.",
	"Your logic is a legacy browser: unsupported.",
	"Your arguments are so thin they're invisible.",
	"Silence next to you sounds smarter.",
	"You're like a spoiler: you ruin everything.",
	"You're unique, like a 404 in real life.",
	"You're a project without a README: unclear and broken.",
	"You're a stale branch: nobody merges you.",
}

var vanilla = []string{
	"Life is vanilla cream: sweet crust, hollow inside.",
	"Sarcasm is the seasoning, vanilla is the base. Eat carefully.",
	"Vanilla is the philosophy of compromise between boredom and comfort.",
	"Being vanilla means being a calm catastrophe.",
	"Sometimes the best revenge is forgetting, sarcastically.",
	"Vanilla teaches patience: waiting for someone else to slip.",
	"Accept mediocrity with a smile. That's the whole doctrine.",
	"Vanilla is when the world is soft but the soul stays sharp.",
	"Fewer expectations, fewer disappointments.",
	"Don't argue with stupidity, it absorbs you.",
	"Have a plan, and learn to enjoy its failure.",
	"Real courage is admitting your boredom and living with it.",
}

var nudges = []string{
	"Hey, you're all silent. This is dreadfully boring.",
	"Life is short and you sit here sulking. Wake me up.",
	"Shout something valuable, or at least something funny.",
	"Silence eats good jokes. Feed them.",
	"Is this a museum? Liven up the air.",
	"The emptiness in this chat is louder than you think.",
	"Conversation is food; you're clearly fasting.",
	"Don't let boredom win. Tell your worst joke.",
	"If silence were a sport you'd all have medals.",
	"Write something while I still remember who you are.",
	"Make noise. I like fishing for victims of silence.",
}

var searches = []string{
	"Conducting a sarcastic search... found only thin excuses and bad taste.",
	"Search complete: two alibis, one ego, zero substance.",
	"Patting you down... nothing but recycled opinions.",
}

var pickIndex = rand.Intn

func pick(bank []string) string {
	return bank[pickIndex(len(bank))]
}

func Greeting() string { return pick(greetings) }

func Farewell() string { return pick(farewells) }

func Roast() string { return pick(roasts) }

func Vanilla() string { return pick(vanilla) }

func Nudge() string { return pick(nudges) }

func Search() string { return pick(searches) }

// Reply answers a mention with either a musing or a nudge.
func Reply() string {
	if pickIndex(2) == 0 {
		return pick(vanilla)
	}
	return pick(nudges)
}
