package cutscenes

import (
	"github.com/yohamta/donburi"

	"github.com/CorvusPrudens/time-marches-on/audio"
	"github.com/CorvusPrudens/time-marches-on/cutscene"
	"github.com/CorvusPrudens/time-marches-on/sequence"
)

var (
	narrator = cutscene.Narrator
	father   = cutscene.Father
	luna     = cutscene.Luna
	stranger = cutscene.Stranger
	sturgeon = cutscene.Sturgeon
	shadow   = cutscene.Shadow
)

// Intro is the greeting played on startup.
func Intro() *sequence.Node {
	return sequence.Say("Hello, world!", "How are you?").Always().Once()
}

// Tea: Luna wants a trip to the mountains, and Father tells the sturgeon
// story again.
func Tea() *sequence.Node {
	laugh := func(w donburi.World, _ sequence.Hook) error {
		audio.Play(w, audio.Sample{Path: "audio/sfx/laugh.wav", Volume: 1})
		return nil
	}
	return sequence.Seq(
		sequence.Seq(
			father.Say("Oh, Luna, there you are."),
			luna.Say("Hey dad! I made some tea."),
			1500,
			luna.Say("Well come on then, sit down."),
			1500,
			luna.Say("Or... not, haha."),
			1500,
			luna.Say("You know, it's been a while since we visited the mountains."),
			father.Say("Those fishing rods ARE getting a little dusty."),
			luna.Say("I was thinking, well... maybe we could take a trip this weekend!"),
			1500,
			luna.Say("Maybe if we reschedule your checkup, then..."),
		),
		sequence.Seq(
			father.Say("Heh heh, feeling a little cooped up, are ya?"),
			father.Say("Well, I'll see what I can do, little birdy!"),
			luna.Say("(I TOLD you to stop calling me that?)"),
			father.Say("(Tweet, tweet!)"),
			2000,
			father.Say("Did I ever tell you about that time I almost caught a sturgeon?"),
			narrator.Say("You probably did, but you regale her anyway."),
			father.Say("This sucker was MASSIVE, bigger than me!"),
			father.Say("And you know darn well I didn't reel it in. It just leapt right into my boat."),
			father.Say("I couldn't believe it!"),
			luna.Say("But it managed to give you the slip, huh?"),
			father.Say("Well, you know... this was a BIG guy. Didn't take much for him to flop outta there."),
			father.Say("Even gave me a good wallop on the way out!").OnEnd(laugh),
			2500,
			father.Say("Thanks for the tea, honey."),
		),
	).Always().Once()
}

// Park: Father spots Luna across the park.
func Park() *sequence.Node {
	return sequence.Seq(
		"You see a woman in the distance.",
		1000,
		father.Say("Luna!"),
		father.Say("Honey, hold up just a moment!"),
	).Always().Once()
}

// ParkManOne is the first meeting with the man behind the tree.
func ParkManOne() *sequence.Node {
	return sequence.Seq(
		"There's a man behind the tree.",
		1000,
		stranger.Say("Hello."),
		father.Say("Good evening, young man."),
		stranger.Say("How did you get here?"),
		1500,
		father.Say("Well I just, uh... I took a little walk, and..."),
		father.Say("Maybe... got turned around just a hair..."),
		stranger.Say("You're not supposed to be here."),
		stranger.Say("Go home."),
		2000,
		father.Say("I'll be on my way, then."),
	).Always().Once()
}

// ParkManTwo is the second meeting.
func ParkManTwo() *sequence.Node {
	return sequence.Seq(
		stranger.Say("Why are you letting her get away?"),
		father.Say("She's so fast, I..."),
		1500,
		stranger.Say("Don't let her go."),
		1500,
		father.Say("Right."),
	).Always().Once()
}

// Visitor is the stranger at the front door.
func Visitor() *sequence.Node {
	return sequence.Seq(
		0.5,
		father.Say("Hello?"),
		1.0,
		stranger.Say("Hey, man."),
		stranger.Say("How are you doing?"),
		1.0,
		stranger.Say("I thought I'd swing by and check in on you."),
		father.Say("Oh, well..."),
		father.Say("That's very kind of you. I'm doing well."),
		1.0,
		stranger.Say("How's Luna?"),
		father.Say("Oh she's becoming a real artist!"),
		father.Say("Finally picking up a thing or two from her old man."),
		1.0,
		stranger.Say("That's nice."),
		1.0,
		stranger.Say("Well, if you need anything, just give me a call."),
		stranger.Say("Be seeing you."),
		0.5,
	).Always().Once()
}

// SturgeonScene plays in the dark bathroom.
func SturgeonScene() *sequence.Node {
	return sturgeon.Lines(
		"how many times",
		"will you tell her",
		"how many times",
		"will you",
	).Always().Once()
}

var shadowLines = []string{
	"you built a cage",
	"do you need more painkillers yet?",
	"who is she, anyway",
	"you'll be all alone",
	"alone",
	"it won't be long, now",
	"die already",
	"oh god, the smell",
}

// Shadows returns the whispers of the dark home, in order.
func Shadows() []*sequence.Node {
	nodes := make([]*sequence.Node, 0, len(shadowLines))
	for _, l := range shadowLines {
		nodes = append(nodes, shadow.Say(l).Always().Once())
	}
	return nodes
}
