package render

// PointVertexShader attenuates point size with view depth and a slow pulse.
// It mirrors PointSize.
const PointVertexShader = `#version 410 core
layout(location = 0) in vec3 position;
layout(location = 1) in vec3 color;
layout(location = 2) in float size;
layout(location = 3) in float seed;

uniform mat4 view;
uniform mat4 projection;
uniform float time;
uniform float pulseMultiplier;
uniform float maxPointSize;

out vec3 vColor;

void main() {
    vec4 mvPosition = view * vec4(position, 1.0);
    float depth = max(-mvPosition.z, 0.001);
    float pulse = 1.0 + sin(time * 2.0 + seed * 6.28318530718) * 0.15 * pulseMultiplier;
    gl_PointSize = min(size * (120.0 / depth) * pulse, maxPointSize);
    gl_Position = projection * mvPosition;
    vColor = color;
}
`

// PointFragmentShader samples the radial falloff mask and desaturates
// slightly toward luminance. It mirrors ShadeColor.
const PointFragmentShader = `#version 410 core
in vec3 vColor;

uniform sampler2D falloff;

out vec4 fragColor;

void main() {
    float mask = texture(falloff, gl_PointCoord).r;
    if (mask < 0.1) discard;
    float l = dot(vColor, vec3(0.2126, 0.7152, 0.0722));
    vec3 col = mix(vColor, vec3(l), 0.15);
    fragColor = vec4(col, mask * 0.85);
}
`
